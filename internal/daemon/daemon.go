package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"notesmith/internal/api"
	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/preflight"
	"notesmith/internal/queue"
	"notesmith/internal/workflow"
)

// Daemon owns the worker pool, the HTTP API, and the instance lock for one
// notesmithd process.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	jobs     *api.JobService
	lock     *InstanceLock
	api      *apiServer

	mu     sync.RWMutex
	checks []preflight.Result

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon. The lock must already be held by the caller; the
// daemon releases it on Close.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, intake *workflow.Intake, lock *InstanceLock) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || intake == nil || lock == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, intake, and lock")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		jobs:     api.NewJobService(store, intake),
		lock:     lock,
	}
	d.api = newAPIServer(cfg.API.Bind, d.jobs, d.Status, NewAuthenticator(cfg.API), logger)
	return d, nil
}

// Start launches the worker pool and the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.running.Store(false)
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		d.running.Store(false)
		return fmt.Errorf("start api: %w", err)
	}
	d.cancel = cancel

	d.logger.Info("notesmith daemon started",
		logging.String("lock", d.lock.Path()),
		logging.String("api", d.api.address()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop halts the API and waits for in-flight tasks to settle.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.logger.Info("notesmith daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon, closes the store, and releases the instance lock.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if err := d.lock.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	return errors.Join(errs...)
}

// SetChecks records the startup preflight results reported by Status.
func (d *Daemon) SetChecks(results []preflight.Result) {
	d.mu.Lock()
	d.checks = append([]preflight.Result(nil), results...)
	d.mu.Unlock()
}

// APIAddress returns the bound listener address, or "" when the API is off.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Jobs exposes the job service backing the API.
func (d *Daemon) Jobs() *api.JobService {
	return d.jobs
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	d.mu.RLock()
	checks := api.FromPreflight(d.checks)
	d.mu.RUnlock()
	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StoreDriver:   d.store.Driver(),
		StoreLocation: d.store.Location(),
		LockFilePath:  d.lock.Path(),
		Workflow:      api.FromStatusSummary(d.workflow.Status(ctx)),
		Checks:        checks,
	}
}
