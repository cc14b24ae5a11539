// Package main is docvault's single-binary server entrypoint: it loads the
// TOML configuration, wires the metadata store, job queue, distributed
// lock and the two storage tiers into the command services, the sync
// dispatcher, the NAS health scheduler and the HTTP surface, then blocks
// until SIGTERM/SIGINT asks it to drain.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/cernbox/docvault/pkg/admission"
	"github.com/cernbox/docvault/pkg/config"
	"github.com/cernbox/docvault/pkg/distlock"
	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/foldersvc"
	"github.com/cernbox/docvault/pkg/grace"
	"github.com/cernbox/docvault/pkg/httpapi"
	"github.com/cernbox/docvault/pkg/jobqueue"
	"github.com/cernbox/docvault/pkg/jobqueue/natsjs"
	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/metadatastore"
	"github.com/cernbox/docvault/pkg/metrics"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/nashealth"
	"github.com/cernbox/docvault/pkg/nasstore/diskfs"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncdispatch"
	"github.com/cernbox/docvault/pkg/uploadengine"
)

var configFlag = flag.String("c", "/etc/docvault/docvault.toml", "set configuration file")

func main() {
	flag.Parse()

	cfg, err := config.LoadFromFile(*configFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "docvaultd: "+err.Error())
		os.Exit(1)
	}

	log.Mode = cfg.LogMode
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	logger := log.New("docvaultd")

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("docvaultd: fatal error during startup")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := log.New("docvaultd")

	db, err := metadatastore.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("docvaultd: opening metadata store: %w", err)
	}
	if err := metadatastore.Migrate(db.DB()); err != nil {
		return fmt.Errorf("docvaultd: running migrations: %w", err)
	}
	var store ports.Store = db

	stream, err := natsjs.Connect(cfg.NATS.Address, cfg.NATS.ClusterID)
	if err != nil {
		return fmt.Errorf("docvaultd: connecting to nats: %w", err)
	}
	queue := jobqueue.New(stream)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lock := distlock.New(redisClient)

	nas, err := diskfs.New(cfg.NASMountPath)
	if err != nil {
		return fmt.Errorf("docvaultd: opening NAS mount: %w", err)
	}
	cache, err := diskfs.New(cfg.CacheMountPath)
	if err != nil {
		return fmt.Errorf("docvaultd: opening cache mount: %w", err)
	}

	folders := foldersvc.NewService(store, queue, cfg.SyncMaxRetries, cfg.TrashRetentionDays)
	if err := folders.Bootstrap(context.Background()); err != nil {
		return fmt.Errorf("docvaultd: bootstrapping root folder: %w", err)
	}
	files := filesvc.NewService(store, queue, cfg.SyncMaxRetries, cfg.TrashRetentionDays)

	limits := admission.Limits{
		MaxActiveSessions:   cfg.MaxActiveSessions,
		MaxTotalUploadBytes: cfg.MaxTotalUploadBytes,
	}
	upload := uploadengine.New(store, cache, files, limits, uploadengine.Config{
		PartSizeBytes:           cfg.PartSizeBytes,
		MultipartThresholdBytes: cfg.MultipartThresholdBytes,
		SessionExpiry:           time.Hour,
	})

	health := nashealth.New()
	scheduler := &nashealth.Scheduler{
		Cell:     health,
		Probe:    nasProbe(nas),
		Interval: time.Duration(cfg.HealthProbeIntervalMs) * time.Millisecond,
	}

	dispatcher := &syncdispatch.Dispatcher{
		Store:       store,
		Queue:       queue,
		Lock:        lock,
		NAS:         nas,
		Cache:       cache,
		Concurrency: cfg.SyncConcurrency,
		LockOpts: ports.LockOptions{
			TTL:           time.Duration(cfg.LockTTLMs) * time.Millisecond,
			WaitTimeout:   time.Duration(cfg.LockWaitTimeoutMs) * time.Millisecond,
			AutoRenew:     true,
			RenewInterval: time.Duration(cfg.LockRenewIntervalMs) * time.Millisecond,
		},
	}

	router := &httpapi.Router{
		Folders: folders,
		Files:   files,
		Upload:  upload,
		Store:   store,
		Health:  health,
	}

	httpServer := &http.Server{Addr: cfg.HTTPAddress, Handler: router.NewRouter()}
	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: metrics.Handler()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcherDone := make(chan struct{})
	go scheduler.Run(ctx)
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("docvaultd: sync dispatcher exited")
		}
	}()
	go sweepAdmission(ctx, upload.Admitter)

	watcher := grace.NewWatcher(grace.WithDeadline(30 * time.Second))
	watcher.Register(httpComponent{name: "http", srv: httpServer})
	watcher.Register(httpComponent{name: "metrics", srv: metricsServer})
	watcher.Register(dispatcherComponent{cancel: cancel, done: dispatcherDone})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("docvaultd: listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("docvaultd: http server error")
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("docvaultd: metrics server error")
		}
	}()

	watcher.Wait()
	return nil
}

// nasProbe checks the NAS mount's root is reachable, the same shallow
// liveness check the teacher's storage drivers use for their own health
// endpoints: a stat of the root, not a full read/write round trip.
func nasProbe(nas ports.ObjectStore) nashealth.Probe {
	return func(ctx context.Context) (model.NASHealthStatus, error) {
		if _, err := nas.Exists(ctx, "/"); err != nil {
			return model.HealthUnhealthy, err
		}
		return model.HealthHealthy, nil
	}
}

// sweepAdmission periodically expires READY tickets that outlived their
// ready-deadline without the caller claiming their session.
func sweepAdmission(ctx context.Context, q *admission.Queue) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Sweep()
		}
	}
}

type httpComponent struct {
	name string
	srv  *http.Server
}

func (c httpComponent) Name() string { return c.name }

func (c httpComponent) Shutdown(ctx context.Context) error {
	return c.srv.Shutdown(ctx)
}

// dispatcherComponent cancels the background context shared by the sync
// dispatcher, the NAS health scheduler and the admission sweep loop so
// grace.Watcher's single Register/Wait model covers all three, then waits
// for the dispatcher's worker pools to actually drain.
type dispatcherComponent struct {
	cancel context.CancelFunc
	done   <-chan struct{}
}

func (c dispatcherComponent) Name() string { return "sync-dispatcher" }

func (c dispatcherComponent) Shutdown(ctx context.Context) error {
	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	return nil
}
