package simd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/ledger/ledgerrpc"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/report"
	"github.com/GoSim-25-26J-441/paynet-sim/internal/simulation"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/config"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/paynet-sim/pkg/models"
)

// LedgerFactory opens the ledger a run talks to and returns a func releasing it
type LedgerFactory func(cfg *config.Config) (ledger.Ledger, func() error, error)

// DefaultLedgerFactory honours the run's ledger configuration
func DefaultLedgerFactory(cfg *config.Config) (ledger.Ledger, func() error, error) {
	return ledgerrpc.Open(cfg.Ledger)
}

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store      *RunStore
	registry   *metrics.Registry
	notifier   *Notifier
	newLedger  LedgerFactory
	outputRoot string
	logger     *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

func NewRunExecutor(store *RunStore) *RunExecutor {
	return &RunExecutor{
		store:     store,
		notifier:  NewNotifier(),
		newLedger: DefaultLedgerFactory,
		logger:    logger.Default,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// SetRegistry publishes run metrics to reg
func (e *RunExecutor) SetRegistry(reg *metrics.Registry) {
	e.registry = reg
}

// SetLedgerFactory replaces the ledger selection
func (e *RunExecutor) SetLedgerFactory(f LedgerFactory) {
	e.newLedger = f
}

// SetOutputRoot makes every finished run write its report artifacts into
// root/<run id>. An empty root disables reports.
func (e *RunExecutor) SetOutputRoot(root string) {
	e.outputRoot = root
}

// SetLogger sets the executor's logger
func (e *RunExecutor) SetLogger(l *slog.Logger) {
	e.logger = logger.OrDefault(l)
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	switch {
	case rec.Run.Status == models.RunStatusRunning:
		return rec, nil
	case rec.Run.Status.Terminal():
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	e.registry.RunStarted()
	e.wg.Add(1)
	go e.runSimulation(ctx, runID)
	return updated, nil
}

// Stop requests cancellation for a run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()

	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Wait blocks until every started run has finished
func (e *RunExecutor) Wait() {
	e.wg.Wait()
}

// StopAll cancels every running run and waits for them to finish
func (e *RunExecutor) StopAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.cancels))
	for id := range e.cancels {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if _, err := e.Stop(id); err != nil {
			e.logger.Debug("stop during shutdown", "run_id", id, "error", err)
		}
	}
	e.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) runSimulation(ctx context.Context, runID string) {
	defer e.wg.Done()
	defer e.cleanup(runID)

	start := time.Now()
	log := e.logger.With("run_id", runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		log.Error("run not found")
		return
	}

	status := e.execute(ctx, log, rec)
	e.registry.RunFinished(string(status), time.Since(start))

	if final, ok := e.store.Get(runID); ok {
		e.notifier.Notify(rec.Callback.URL, rec.Callback.Secret, final)
	}
}

// execute runs the pipeline and records the outcome, returning the final status
func (e *RunExecutor) execute(ctx context.Context, log *slog.Logger, rec *RunRecord) models.RunStatus {
	runID := rec.Run.ID

	l, release, err := e.newLedger(rec.Config)
	if err != nil {
		log.Error("failed to open ledger", "error", err)
		return e.finish(log, runID, models.RunStatusFailed, fmt.Sprintf("ledger unavailable: %v", err))
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn("failed to release ledger", "error", err)
		}
	}()

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(runID, collector); err != nil {
		log.Error("failed to store collector", "error", err)
	}

	runner := simulation.NewRunner(l).
		WithLogger(log).
		WithRegistry(e.registry).
		WithCollector(collector).
		WithProgressReporter(func(checkpoint int, ratio float64) {
			if err := e.store.AddCheckpoint(runID, checkpoint, ratio); err != nil {
				log.Error("failed to record checkpoint", "checkpoint", checkpoint, "error", err)
			}
		})

	res, err := runner.Run(ctx, rec.Config)
	if res != nil {
		if serr := e.store.SetSummary(runID, res.Summary()); serr != nil {
			log.Error("failed to set summary", "error", serr)
		}
	}

	if ctx.Err() != nil {
		log.Info("run cancelled")
		return e.finish(log, runID, models.RunStatusCancelled, "")
	}
	if err != nil {
		log.Error("run failed", "error", err)
		return e.finish(log, runID, models.RunStatusFailed, err.Error())
	}

	if e.outputRoot != "" {
		if err := e.writeReports(runID, res); err != nil {
			log.Error("failed to write reports", "error", err)
		}
	}

	log.Info("run completed",
		"trials", res.Trials,
		"success_ratio", res.SuccessRatio())
	return e.finish(log, runID, models.RunStatusCompleted, "")
}

func (e *RunExecutor) finish(log *slog.Logger, runID string, status models.RunStatus, errMsg string) models.RunStatus {
	updated, err := e.store.SetStatus(runID, status, errMsg)
	if err != nil {
		if errors.Is(err, ErrRunTerminal) {
			// stopped concurrently; keep the status Stop recorded
			if rec, ok := e.store.Get(runID); ok {
				return rec.Run.Status
			}
		}
		log.Error("failed to set status", "status", status, "error", err)
		return status
	}
	return updated.Run.Status
}

func (e *RunExecutor) writeReports(runID string, res *simulation.Result) error {
	dir := filepath.Join(e.outputRoot, runID)
	if err := report.PrepareDir(dir, true); err != nil {
		return err
	}
	_, err := report.NewWriter(dir).WriteResult(res)
	return err
}
