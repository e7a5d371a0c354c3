package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/robot.sensors/internal/config"
	"github.com/banshee-data/robot.sensors/internal/db"
	"github.com/banshee-data/robot.sensors/internal/monitoring"
	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/serialmux"
	"github.com/banshee-data/robot.sensors/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run against the built-in simulator instead of the serial port")
	listen      = flag.String("listen", ":8080", "Listen address for the monitor (empty disables it)")
	port        = flag.String("port", "/dev/ttyUSB0", "Serial port to use (ignored in dev mode)")
	configFile  = flag.String("config", "", "Path to a sensor config JSON file (defaults apply when empty)")
	dbPath      = flag.String("db", "sensors.db", "Path to the SQLite recorder database (empty disables recording)")
	modeFlag    = flag.String("mode", "DEFAULT", "Acquisition mode: DEFAULT, SEARCHING_FOR_BEACON or SEARCHING_FOR_BEACON_AREA")
	debug       = flag.Bool("debug", false, "Log a trace line for every tick")
	seed        = flag.Int64("seed", 1, "Simulator noise seed (dev mode)")
	maxTicks    = flag.Uint64("ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	versionFlag = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag {
		fmt.Printf("sensord %s (git %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	switch flag.Arg(0) {
	case "migrate":
		if *dbPath == "" {
			log.Fatal("migrate requires -db")
		}
		if err := db.RunMigrateCommand(flag.Args()[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	case "ports":
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	case "":
	default:
		usage()
		os.Exit(2)
	}

	mode, err := sensors.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("invalid -mode: %v", err)
	}

	cfg := config.EmptySensorConfig()
	if *configFile != "" {
		cfg, err = config.LoadSensorConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	monitoring.SetDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, options{
		Dev:      *devMode,
		Port:     *port,
		Config:   cfg,
		DBPath:   *dbPath,
		Listen:   *listen,
		Mode:     mode,
		Seed:     *seed,
		MaxTicks: *maxTicks,
	})
	if err != nil {
		log.Fatalf("sensord: %v", err)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: sensord [flags]\n")
	fmt.Fprintf(out, "       sensord [-db path] migrate <command>\n")
	fmt.Fprintf(out, "       sensord ports\n\nFlags:\n")
	flag.PrintDefaults()
}
