package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// OrchestratorConfig sizes the worker pool.
type OrchestratorConfig struct {
	WorkerCount  int
	MaxQueueSize int
}

// Orchestrator runs submitted runs on a fixed pool of workers.
type Orchestrator struct {
	runs   *RunStore
	queue  chan *Run
	worker *Worker
	log    *slog.Logger
	cfg    OrchestratorConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg OrchestratorConfig, worker *Worker, runs *RunStore, log *slog.Logger) *Orchestrator {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize < 1 {
		cfg.MaxQueueSize = 1
	}
	return &Orchestrator{
		runs:   runs,
		queue:  make(chan *Run, cfg.MaxQueueSize),
		worker: worker,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					if run.StopRequested() {
						run.setStatus(StatusStopped, "stopped before start")
						continue
					}
					o.worker.Process(workerCtx, run)
				}
			}
		}()
	}
}

// Stop cancels in-flight runs and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues run for processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	run.setStatus(StatusQueued, "queued")
	select {
	case o.queue <- run:
		return nil
	default:
		run.fail("queue_full", fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize))
		return fmt.Errorf("run queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetRun returns a run by ID, or nil.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Runner returns the runner the workers use.
func (o *Orchestrator) Runner() *Runner {
	return o.worker.runner
}
