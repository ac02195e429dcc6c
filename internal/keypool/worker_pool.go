package keypool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// UsageTask records the outcome of one upstream call made with a key.
type UsageTask struct {
	Key          string
	IsSuccess    bool
	ErrorMessage string
	Timestamp    time.Time
}

// TaskProcessor consumes usage tasks.
type TaskProcessor interface {
	Process(task *UsageTask)
}

// WorkerPoolConfig holds configuration for the usage worker pool.
type WorkerPoolConfig struct {
	WorkerCount   int // number of worker goroutines (default: 2)
	QueueCapacity int // task queue capacity (default: 1024)
}

// DefaultWorkerPoolConfig returns default configuration.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:   2,
		QueueCapacity: 1024,
	}
}

// WorkerPoolMetrics is a snapshot of pool counters.
type WorkerPoolMetrics struct {
	QueueLength    int64
	ProcessedCount int64
	DroppedCount   int64
}

// WorkerPool drains usage tasks into a processor on a fixed set of
// workers. Usage accounting is best-effort: when the queue is full the
// task is dropped rather than blocking the request path.
type WorkerPool struct {
	config    WorkerPoolConfig
	taskChan  chan *UsageTask
	stopChan  chan struct{}
	wg        sync.WaitGroup
	processor TaskProcessor
	logger    *logrus.Entry

	queueLength    atomic.Int64
	processedCount atomic.Int64
	droppedCount   atomic.Int64

	running atomic.Bool
}

// NewWorkerPool creates a worker pool with the given configuration.
func NewWorkerPool(config WorkerPoolConfig, processor TaskProcessor, logger *logrus.Entry) *WorkerPool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultWorkerPoolConfig().WorkerCount
	}
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultWorkerPoolConfig().QueueCapacity
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &WorkerPool{
		config:    config,
		taskChan:  make(chan *UsageTask, config.QueueCapacity),
		stopChan:  make(chan struct{}),
		processor: processor,
		logger:    logger.WithField("component", "keypool_usage"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	if wp.running.Swap(true) {
		wp.logger.Warn("Usage worker pool already running")
		return
	}

	wp.logger.WithFields(logrus.Fields{
		"worker_count":   wp.config.WorkerCount,
		"queue_capacity": wp.config.QueueCapacity,
	}).Info("Starting key usage worker pool")

	for i := 0; i < wp.config.WorkerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit queues a task. Returns false when the pool is stopped or the
// queue is full.
func (wp *WorkerPool) Submit(task *UsageTask) bool {
	if !wp.running.Load() {
		return false
	}

	select {
	case wp.taskChan <- task:
		wp.queueLength.Add(1)
		return true
	default:
		wp.droppedCount.Add(1)
		wp.logger.Warn("Usage queue full, dropping task")
		return false
	}
}

// Stop shuts the pool down, draining any queued tasks first.
func (wp *WorkerPool) Stop() {
	if !wp.running.Swap(false) {
		return
	}

	wp.logger.Info("Stopping key usage worker pool")
	close(wp.stopChan)
	wp.wg.Wait()
	wp.drainRemainingTasks()

	wp.logger.WithFields(logrus.Fields{
		"processed": wp.processedCount.Load(),
		"dropped":   wp.droppedCount.Load(),
	}).Info("Key usage worker pool stopped")
}

// GetMetrics returns a snapshot of the pool counters.
func (wp *WorkerPool) GetMetrics() WorkerPoolMetrics {
	return WorkerPoolMetrics{
		QueueLength:    wp.queueLength.Load(),
		ProcessedCount: wp.processedCount.Load(),
		DroppedCount:   wp.droppedCount.Load(),
	}
}

// IsRunning reports whether the pool is accepting tasks.
func (wp *WorkerPool) IsRunning() bool {
	return wp.running.Load()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	logger := wp.logger.WithField("worker_id", id)
	logger.Debug("Usage worker started")

	for {
		select {
		case <-wp.stopChan:
			return
		case task, ok := <-wp.taskChan:
			if !ok {
				return
			}
			wp.queueLength.Add(-1)
			wp.processor.Process(task)
			wp.processedCount.Add(1)
		}
	}
}

func (wp *WorkerPool) drainRemainingTasks() {
	for {
		select {
		case task, ok := <-wp.taskChan:
			if !ok {
				return
			}
			wp.queueLength.Add(-1)
			wp.processor.Process(task)
			wp.processedCount.Add(1)
		default:
			return
		}
	}
}
