// Command repcount counts push-up repetitions and classifies form from a live
// stream of pose landmarks, serving the session over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/repcount/internal/api"
	"github.com/banshee-data/repcount/internal/config"
	"github.com/banshee-data/repcount/internal/monitoring"
	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/pipeline"
	"github.com/banshee-data/repcount/internal/serialmux"
	"github.com/banshee-data/repcount/internal/timeutil"
	"github.com/banshee-data/repcount/internal/version"
)

var (
	configPath        = flag.String("config", config.DefaultConfigPath, "Path to the tuning config JSON")
	listen            = flag.String("listen", ":8080", "Listen address")
	port              = flag.String("port", "/dev/ttyUSB0", "Serial port the pose oracle is attached to")
	baud              = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	fixture           = flag.String("fixture", "", "Replay pose frames from a JSONL fixture instead of the serial port")
	useStdin          = flag.Bool("stdin", false, "Read pose frames from stdin")
	disableSerial     = flag.Bool("disable-serial", false, "Run without a pose oracle (HTTP only)")
	countOnlyGoodForm = flag.Bool("count-only-good-form", false, "Only count repetitions performed with good form (overrides config)")
	logLevel          = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat         = flag.String("log-format", "console", "Log format: json or console")
	showVersion       = flag.Bool("version", false, "Print version and exit")
)

// oracleSource selects where pose frames come from.
type oracleSource struct {
	Fixture  string
	Stdin    bool
	Disabled bool
	Port     string
	Baud     int
}

// openOracle builds the line source for src. Fixture replay and stdin take
// precedence over the serial port.
func openOracle(src oracleSource, cfg *config.TuningConfig, clock timeutil.Clock) (serialmux.SerialMuxInterface, error) {
	muxOpts := []serialmux.Option{serialmux.WithStartCommands(cfg.GetOracleStartCommands()...)}
	switch {
	case src.Disabled:
		return serialmux.NewDisabledSerialMux(), nil
	case src.Fixture != "":
		lines, err := serialmux.LoadFixture(src.Fixture)
		if err != nil {
			return nil, err
		}
		log.Printf("replaying %d fixture frames from %s every %s", len(lines), src.Fixture, cfg.GetFrameInterval())
		return serialmux.NewMockSerialMux(lines, cfg.GetFrameInterval(), true, clock, muxOpts...), nil
	case src.Stdin:
		return serialmux.NewReaderSerialMux(os.Stdin, nil, muxOpts...), nil
	default:
		if src.Port == "" {
			return nil, errors.New("serial port is required")
		}
		m, err := serialmux.NewRealSerialMux(src.Port, serialmux.PortOptions{BaudRate: src.Baud}, muxOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", src.Port, err)
		}
		return m, nil
	}
}

// loadConfig reads the tuning file and applies command line overrides.
// explicit reports whether -count-only-good-form was passed.
func loadConfig(path string, explicit bool, countGood bool) (*config.TuningConfig, error) {
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}
	if explicit {
		cfg.SetCountOnlyGoodForm(countGood)
	}
	return cfg, nil
}

func flagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func setupLogging(level, format string) (*zap.Logger, error) {
	logger, err := monitoring.NewLogger(level, format, "repcount")
	if err != nil {
		return nil, err
	}
	monitoring.UseLogger(logger)
	log.SetFlags(0)
	log.SetOutput(zap.NewStdLog(logger).Writer())
	motion.SetLogger(logger)
	pipeline.SetLogger(logger)
	serialmux.SetLogger(logger)
	api.SetLogger(logger)
	return logger, nil
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("repcount", version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	logger, err := setupLogging(*logLevel, *logFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	log.Printf("repcount %s", version.String())

	cfg, err := loadConfig(*configPath, flagPassed("count-only-good-form"), *countOnlyGoodForm)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tracker, err := motion.NewTracker(motion.ConfigFromTuning(cfg))
	if err != nil {
		log.Fatalf("invalid tracker configuration: %v", err)
	}
	log.Printf("tracking %s, session %s", tracker.Exercise().Name, tracker.SessionID())

	oracle, err := openOracle(oracleSource{
		Fixture:  *fixture,
		Stdin:    *useStdin,
		Disabled: *disableSerial,
		Port:     *port,
		Baud:     *baud,
	}, cfg, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to open pose oracle: %v", err)
	}
	defer oracle.Close()

	if err := oracle.Initialise(); err != nil {
		log.Fatalf("failed to initialise pose oracle: %v", err)
	}

	events := api.NewBroadcaster()
	defer events.Close()
	runner := pipeline.NewRunner(tracker, events)

	// Create a wait group for the HTTP server, oracle monitor, and processing routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the oracle port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := oracle.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor pose oracle: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the oracle lines and run them through the tracker
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := oracle.Subscribe()
		defer oracle.Unsubscribe(id)
		switch err := runner.Run(ctx, c); {
		case err == nil:
			// oracle input ended (stdin or a non-looping source); shut down
			log.Print("pose input ended")
			stop()
		case !errors.Is(err, context.Canceled):
			log.Printf("processing loop stopped: %v", err)
		}
		counters := runner.Counters()
		log.Printf("processing routine terminated: %d frames, %d skipped, %d decode errors",
			counters.Frames, counters.Skipped, counters.DecodeErrors)
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(tracker, oracle, events)
		srv.SetPipelineCounters(runner.Counters)

		server := &http.Server{
			Addr:              *listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// SSE clients hold connections open until their streams end.
		events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	stats := tracker.Stats()
	log.Printf("session %s: %d reps, %d analysed frames", stats.SessionID, stats.RepetitionCount, stats.AnalysedFrames)
	log.Printf("Graceful shutdown complete")
}
