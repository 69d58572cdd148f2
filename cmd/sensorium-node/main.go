package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afeldman/sensorium"
	"github.com/afeldman/sensorium/metrics"
	"github.com/afeldman/sensorium/store"
)

var configPath = flag.String("config", "conf/sensorium-node/config.json", "node config file path")
var listenAddr = flag.String("addr", ":9100", "HTTP listen address for /metrics and /healthz")
var showHelp = flag.Bool("help", false, "show usage")
var showVersion = flag.Bool("version", false, "show version")

const version = "0.1.0"

func main() {
	flag.Parse()
	if *showHelp {
		flag.Usage()
		return
	}
	if *showVersion {
		log.Printf("sensorium-node version %s", version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	redisStore := store.NewRedisStore(store.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisStore.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = redisStore.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}

	metricsRegistry := metrics.New()
	engine, err := sensorium.NewEngine(sensorium.Config{
		NodeID:            cfg.NodeID,
		Store:             redisStore,
		Metrics:           metricsRegistry,
		HeartbeatTTL:      cfg.heartbeatTTL(),
		ObservationTTL:    cfg.observationTTL(),
		BucketMS:          cfg.BucketMilliseconds,
		DriftLearningRate: cfg.DriftLearningRate,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stopTicking := context.WithCancel(context.Background())

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: newMux(metricsRegistry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	tickDone := make(chan struct{})
	go runTickLoop(ctx, engine, cfg.tickInterval(), tickDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Printf(
		"listening on %s configPath=%q nodeId=%q redisAddr=%q tickIntervalMs=%d",
		*listenAddr, *configPath, cfg.NodeID, cfg.RedisAddr, cfg.TickMilliseconds,
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case sig := <-sigCh:
		log.Printf("shutdown signal: %s", sig)
	}

	stopTicking()
	<-tickDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func runTickLoop(ctx context.Context, engine *sensorium.Engine, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			groups, err := engine.Step(ctx)
			if err != nil {
				log.Printf("tick error: %v", err)
				continue
			}
			if len(groups) > 0 {
				log.Printf("tick produced %d group(s)", len(groups))
			}
		}
	}
}

func newMux(registry *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		registry.WritePrometheus(w)
	})
	return mux
}
