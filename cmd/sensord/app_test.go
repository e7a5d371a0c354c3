package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/robot.sensors/internal/config"
	"github.com/banshee-data/robot.sensors/internal/db"
	"github.com/banshee-data/robot.sensors/internal/hardware"
	"github.com/banshee-data/robot.sensors/internal/monitoring"
	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/serialmux"
	"github.com/banshee-data/robot.sensors/internal/testutil"
	"github.com/banshee-data/robot.sensors/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func fastConfig() *config.SensorConfig {
	period := "1ms"
	cfg := config.EmptySensorConfig()
	cfg.TickPeriod = &period
	return cfg
}

func TestRun_DevModeRecordsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")

	err := run(context.Background(), options{
		Dev:      true,
		Config:   fastConfig(),
		DBPath:   path,
		Mode:     sensors.ModeSearchingForBeacon,
		Seed:     3,
		MaxTicks: 40,
	})
	require.NoError(t, err)

	store, err := db.NewDB(path)
	require.NoError(t, err)
	defer store.Close()

	sessions, err := store.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 40, sessions[0].Ticks)
	assert.NotNil(t, sessions[0].EndedAt)

	ticks, err := store.RecentTicks(sessions[0].ID, 100)
	require.NoError(t, err)
	require.Len(t, ticks, 40)
	// five priming cycles of a five-deep buffer run before the loop
	assert.Equal(t, uint64(26), ticks[0].Raw.Tick)
	assert.Equal(t, uint64(65), ticks[39].Raw.Tick)
	assert.Equal(t, sensors.ModeSearchingForBeacon, ticks[0].Raw.Mode)

	crumbs, err := store.Breadcrumbs(sessions[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, crumbs)
}

func TestRun_WithoutDatabase(t *testing.T) {
	err := run(context.Background(), options{
		Dev:      true,
		Config:   fastConfig(),
		MaxTicks: 5,
	})
	assert.NoError(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{
			Dev:    true,
			Config: fastConfig(),
			DBPath: filepath.Join(t.TempDir(), "cancel.db"),
			Listen: "127.0.0.1:0",
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestRun_BadSerialPort(t *testing.T) {
	err := run(context.Background(), options{
		Port:   filepath.Join(t.TempDir(), "no-such-tty"),
		Config: fastConfig(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open serial port")
}

func TestRecorder_CorrectionsAndNoDatabase(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "rec.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	rec := &recorder{db: store, clock: clock, breadcrumbEvery: 1}

	// corrections before the session is recorded are dropped
	rec.onCorrection(sensors.Correction{Tick: 1, Source: sensors.CorrectionSourceManual})

	sess, err := sensors.Initialize(context.Background(), hardware.NewSimulator(1),
		sensors.WithClock(clock),
		sensors.WithCorrectionHook(rec.onCorrection),
	)
	require.NoError(t, err)
	rec.start(sess)

	require.NoError(t, sess.ApplyPoseCorrection(0.5, 0, 0))
	_, err = sess.AcquireFiltered(context.Background(), sensors.ModeDefault)
	require.NoError(t, err)
	rec.recordTick(sess)
	rec.end()

	corrections, err := store.Corrections(sess.ID())
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, 0.5, corrections[0].Offset.DX)
	assert.Equal(t, sensors.CorrectionSourceManual, corrections[0].Source)

	crumbs, err := store.Breadcrumbs(sess.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, crumbs)

	// a recorder without a database only logs
	bare := &recorder{clock: clock, breadcrumbEvery: 1}
	bare.start(sess)
	bare.recordTick(sess)
	bare.onCorrection(sensors.Correction{})
	bare.end()
}

func TestNewWebServer_AdminRoutes(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	sess, err := sensors.Initialize(context.Background(), hardware.NewSimulator(1), sensors.WithClock(clock))
	require.NoError(t, err)

	ws, err := newWebServer(":0", sess, store, serialmux.NewDisabledSerialMux())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	ws.Handler().ServeHTTP(w, testutil.NewLocalRequest(http.MethodGet, "/debug/", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	assert.Contains(t, w.Body.String(), "tailsql")

	w = httptest.NewRecorder()
	ws.Handler().ServeHTTP(w, testutil.NewLocalRequest(http.MethodGet, "/debug/serial-disabled", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	w = httptest.NewRecorder()
	ws.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
}
