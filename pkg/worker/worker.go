package worker

import (
	"context"
	"sync"

	"github.com/nimasrn/finance-ledger/pkg/logger"
)

type WorkerHandler = func(ctx context.Context, workerIndex int, job interface{})

// WorkerManager runs a fixed number of goroutines over a buffered job
// channel. Jobs are accepted until Wait is called; Wait drains what is
// queued and returns once every worker has finished.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	do             WorkerHandler
	waiter         sync.WaitGroup
	closeOnce      sync.Once
}

func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &WorkerManager{
		jobChannel:     make(chan interface{}, bufferSize),
		numberOfWorker: numberOfWorkers,
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Start launches the workers. Once ctx is done the remaining queued jobs are
// skipped.
func (w *WorkerManager) Start(ctx context.Context) {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for job := range w.jobChannel {
				if ctx.Err() != nil {
					continue
				}
				w.do(ctx, index, job)
			}
		}(i)
	}
}

// Enqueue blocks while the buffer is full.
func (w *WorkerManager) Enqueue(val interface{}) {
	w.jobChannel <- val
}

// Wait closes the job channel and blocks until the workers are done.
func (w *WorkerManager) Wait() {
	w.closeOnce.Do(func() {
		close(w.jobChannel)
	})
	w.waiter.Wait()
	logger.Debug("worker manager drained", "workers", w.numberOfWorker)
}
