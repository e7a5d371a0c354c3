package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/robot.sensors/internal/config"
	"github.com/banshee-data/robot.sensors/internal/db"
	"github.com/banshee-data/robot.sensors/internal/hardware"
	"github.com/banshee-data/robot.sensors/internal/monitor"
	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/serialmux"
	"github.com/banshee-data/robot.sensors/internal/timeutil"
)

type options struct {
	Dev      bool
	Port     string
	Config   *config.SensorConfig
	DBPath   string
	Listen   string
	Mode     sensors.Mode
	Seed     int64
	MaxTicks uint64
	Clock    timeutil.Clock
}

// run wires the source, session, recorder and monitor together and drives
// the tick loop until ctx is done or MaxTicks ticks have run.
func run(ctx context.Context, opts options) error {
	if opts.Config == nil {
		opts.Config = config.EmptySensorConfig()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	settings := sensors.SettingsFromConfig(opts.Config)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// the serial link outlives ctx so the session can disable channels
	// after an interrupt
	linkCtx, stopLink := context.WithCancel(context.Background())
	defer stopLink()
	var wg sync.WaitGroup

	var (
		mux serialmux.SerialMuxInterface
		src sensors.Source
	)
	if opts.Dev {
		mux = serialmux.NewDisabledSerialMux()
		src = hardware.NewSimulator(opts.Seed)
		log.Printf("dev mode: using simulated robot (seed %d)", opts.Seed)
	} else {
		m, err := serialmux.NewRealSerialMux(opts.Port, serialmux.PortOptionsFromConfig(opts.Config.GetSerial()))
		if err != nil {
			return fmt.Errorf("failed to open serial port %s: %w", opts.Port, err)
		}
		mux = m
		src = hardware.NewSerialSource(m, opts.Config.GetRequestTimeout())

		// run the monitor routine to manage IO on the serial port
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(linkCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()
		go func() {
			defer wg.Done()
			serialmux.LogLines(linkCtx, mux)
		}()
	}
	defer func() {
		cancel()
		stopLink()
		wg.Wait()
		if err := mux.Close(); err != nil {
			log.Printf("failed to close serial port: %v", err)
		}
	}()

	rec := &recorder{clock: clock, breadcrumbEvery: uint64(max(1, settings.BreadcrumbDecimation))}
	if opts.DBPath != "" {
		store, err := db.NewDB(opts.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		rec.db = store
	}

	sess, err := sensors.Initialize(ctx, src,
		sensors.WithSettings(settings),
		sensors.WithClock(clock),
		sensors.WithCorrectionHook(rec.onCorrection),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize sensors: %w", err)
	}
	log.Printf("session %s initialized, compass baseline %.3f rad", sess.ID(), sess.CompassBaseline())
	rec.start(sess)
	defer func() {
		cancel()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancelShutdown()
		if err := sess.Shutdown(shutdownCtx); err != nil {
			log.Printf("sensor shutdown: %v", err)
		}
		rec.end()
	}()

	if opts.Listen != "" {
		ws, err := newWebServer(opts.Listen, sess, rec.db, mux)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(ctx); err != nil {
				log.Printf("monitor: %v", err)
			}
		}()
	}

	return runLoop(ctx, sess, rec, clock, opts.Mode, settings.TickPeriod, opts.MaxTicks)
}

func newWebServer(addr string, sess *sensors.Session, store *db.DB, mux serialmux.SerialMuxInterface) (*monitor.WebServer, error) {
	cfg := monitor.WebServerConfig{
		Address: addr,
		Session: sess,
		AdminRoutes: []func(*http.ServeMux) error{
			func(m *http.ServeMux) error {
				mux.AttachAdminRoutes(m)
				return nil
			},
		},
	}
	if store != nil {
		cfg.History = store
		cfg.AdminRoutes = append(cfg.AdminRoutes, store.AttachAdminRoutes)
	}
	return monitor.NewWebServer(cfg)
}

// runLoop refreshes the session once per period. A maxTicks of zero runs
// until ctx is done.
func runLoop(ctx context.Context, sess *sensors.Session, rec *recorder, clock timeutil.Clock, mode sensors.Mode, period time.Duration, maxTicks uint64) error {
	ticker := clock.NewTicker(period)
	defer ticker.Stop()

	var n uint64
	for maxTicks == 0 || n < maxTicks {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
		if _, err := sess.AcquireFiltered(ctx, mode); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("tick %d: %w", sess.Ticks(), err)
		}
		rec.recordTick(sess)
		n++
	}
	log.Printf("stopping after %d ticks", n)
	return nil
}

// recorder persists ticks and corrections of the running session. With no
// database every method is a no-op.
type recorder struct {
	db              *db.DB
	clock           timeutil.Clock
	breadcrumbEvery uint64

	mu        sync.Mutex
	sessionID string
}

func (r *recorder) start(sess *sensors.Session) {
	r.mu.Lock()
	r.sessionID = sess.ID()
	r.mu.Unlock()
	if r.db == nil {
		return
	}
	if err := r.db.StartSession(sess.ID(), r.clock.Now(), sess.CompassBaseline()); err != nil {
		log.Printf("failed to record session: %v", err)
	}
}

func (r *recorder) id() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

func (r *recorder) end() {
	if r.db == nil {
		return
	}
	if err := r.db.EndSession(r.id(), r.clock.Now()); err != nil {
		log.Printf("failed to record session end: %v", err)
	}
}

func (r *recorder) recordTick(sess *sensors.Session) {
	if r.db == nil {
		return
	}
	raw, filt := sess.LastRaw(), sess.LastFiltered()
	if err := r.db.RecordTick(r.id(), raw, filt, r.clock.Now()); err != nil {
		log.Printf("failed to record tick: %v", err)
	}
	if raw.Tick%r.breadcrumbEvery == 0 {
		if err := r.db.ReplaceBreadcrumbs(r.id(), filt.Breadcrumbs); err != nil {
			log.Printf("failed to record breadcrumbs: %v", err)
		}
	}
}

// onCorrection is the session's correction hook. It may run before start
// records the session; those corrections are only logged.
func (r *recorder) onCorrection(c sensors.Correction) {
	log.Printf("pose correction (%s) at tick %d: offset now %+v", c.Source, c.Tick, c.Offset)
	id := r.id()
	if r.db == nil || id == "" {
		return
	}
	if err := r.db.RecordCorrection(id, c, r.clock.Now()); err != nil {
		log.Printf("failed to record correction: %v", err)
	}
}
