package features

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"interviewer/internal/metrics"
)

// GradingJob asks for the score of one recorded answer.
type GradingJob struct {
	CandidateID  string
	AnswerIndex  int
	QuestionID   string
	QuestionText string
	ResponseText string
	EnqueuedAt   time.Time
}

type gradingProcessor interface {
	gradeAnswerSafe(ctx context.Context, job GradingJob)
}

// GradingWorkerPool grades answers in the background so the next question's timer
// never waits on the previous grade. Idle workers exit and are respawned on demand.
type GradingWorkerPool struct {
	jobQueue          chan GradingJob
	workerCount       int
	maxTasksPerWorker int
	maxIdleTime       time.Duration
	maxTaskWaitTime   time.Duration
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	mu                sync.Mutex
	stopped           bool
	processor         gradingProcessor
	logger            *zap.Logger
	nextWorkerID      int
	// Metrics
	totalJobsEnqueued  int64
	totalJobsProcessed int64
	totalJobsDropped   int64
	activeWorkers      int64
}

func NewGradingWorkerPool(size, maxTasksPerWorker, maxIdleTime, maxTaskWaitTime int) *GradingWorkerPool {
	if size <= 0 {
		size = 1
	}
	if maxTasksPerWorker <= 0 {
		maxTasksPerWorker = 1
	}
	if maxIdleTime <= 0 {
		maxIdleTime = 300
	}
	if maxTaskWaitTime <= 0 {
		maxTaskWaitTime = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &GradingWorkerPool{
		jobQueue:          make(chan GradingJob, size*maxTasksPerWorker),
		workerCount:       size,
		maxTasksPerWorker: maxTasksPerWorker,
		maxIdleTime:       time.Duration(maxIdleTime) * time.Second,
		maxTaskWaitTime:   time.Duration(maxTaskWaitTime) * time.Second,
		ctx:               ctx,
		cancel:            cancel,
	}
}

func (wp *GradingWorkerPool) Start(processor gradingProcessor, logger *zap.Logger) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.processor = processor
	wp.logger = logger
	logger.Info("Starting grading worker pool",
		zap.Int("workerCount", wp.workerCount),
		zap.Int("queueCapacity", cap(wp.jobQueue)),
		zap.Duration("maxIdleTime", wp.maxIdleTime))

	for i := 0; i < wp.workerCount; i++ {
		wp.spawnLocked()
	}
}

// Stop lets the workers drain the queue and waits for them.
func (wp *GradingWorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	metrics.GradingPool(0, 0)
}

func (wp *GradingWorkerPool) spawnLocked() {
	wp.nextWorkerID++
	wp.wg.Add(1)
	atomic.AddInt64(&wp.activeWorkers, 1)
	go wp.worker(wp.nextWorkerID)
}

func (wp *GradingWorkerPool) worker(workerID int) {
	defer wp.wg.Done()
	counted := true
	defer func() {
		if counted {
			atomic.AddInt64(&wp.activeWorkers, -1)
		}
	}()

	idleTimer := time.NewTimer(wp.maxIdleTime)
	defer idleTimer.Stop()

	jobsProcessed := 0

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				wp.logger.Debug("Worker stopping, job queue closed",
					zap.Int("workerId", workerID),
					zap.Int("jobsProcessed", jobsProcessed))
				return
			}

			wp.logger.Debug("Worker processing job",
				zap.Int("workerId", workerID),
				zap.String("candidateId", job.CandidateID),
				zap.Int("answerIndex", job.AnswerIndex),
				zap.Duration("waitTime", time.Since(job.EnqueuedAt)))

			startTime := time.Now()
			wp.processor.gradeAnswerSafe(wp.ctx, job)

			atomic.AddInt64(&wp.totalJobsProcessed, 1)
			jobsProcessed++
			metrics.GradingPool(int(atomic.LoadInt64(&wp.activeWorkers)), len(wp.jobQueue))

			wp.logger.Debug("Worker completed job",
				zap.Int("workerId", workerID),
				zap.String("candidateId", job.CandidateID),
				zap.Int("answerIndex", job.AnswerIndex),
				zap.Duration("processingTime", time.Since(startTime)))

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(wp.maxIdleTime)

		case <-idleTimer.C:
			wp.mu.Lock()
			if len(wp.jobQueue) > 0 {
				wp.mu.Unlock()
				idleTimer.Reset(wp.maxIdleTime)
				continue
			}
			// leave the count under the lock so EnqueueJob respawns a replacement
			atomic.AddInt64(&wp.activeWorkers, -1)
			counted = false
			wp.mu.Unlock()
			wp.logger.Debug("Worker idle timeout, exiting",
				zap.Int("workerId", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			return
		}
	}
}

// EnqueueJob queues job, waiting up to maxTaskWaitTime for room. Workers that exited
// while idle are respawned first. It reports false when the job was not queued.
func (wp *GradingWorkerPool) EnqueueJob(job GradingJob) bool {
	job.EnqueuedAt = time.Now()

	wp.mu.Lock()
	if wp.stopped || wp.processor == nil {
		wp.mu.Unlock()
		atomic.AddInt64(&wp.totalJobsDropped, 1)
		return false
	}
	for atomic.LoadInt64(&wp.activeWorkers) < int64(wp.workerCount) {
		wp.spawnLocked()
	}
	logger := wp.logger
	// sending under the lock keeps Stop from closing the queue mid-send
	defer wp.mu.Unlock()

	wait := time.NewTimer(wp.maxTaskWaitTime)
	defer wait.Stop()

	select {
	case wp.jobQueue <- job:
		atomic.AddInt64(&wp.totalJobsEnqueued, 1)
		logger.Debug("Enqueued grading job",
			zap.String("candidateId", job.CandidateID),
			zap.Int("answerIndex", job.AnswerIndex),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int("queueCapacity", cap(wp.jobQueue)))
		metrics.GradingPool(int(atomic.LoadInt64(&wp.activeWorkers)), len(wp.jobQueue))
		return true

	case <-wait.C:
		atomic.AddInt64(&wp.totalJobsDropped, 1)
		logger.Warn("Grading job enqueue timeout",
			zap.String("candidateId", job.CandidateID),
			zap.Int("answerIndex", job.AnswerIndex),
			zap.Duration("timeout", wp.maxTaskWaitTime),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int64("activeWorkers", atomic.LoadInt64(&wp.activeWorkers)))
		return false
	}
}

// GetMetrics returns worker pool metrics
func (wp *GradingWorkerPool) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"total_jobs_enqueued":  atomic.LoadInt64(&wp.totalJobsEnqueued),
		"total_jobs_processed": atomic.LoadInt64(&wp.totalJobsProcessed),
		"total_jobs_dropped":   atomic.LoadInt64(&wp.totalJobsDropped),
		"active_workers":       atomic.LoadInt64(&wp.activeWorkers),
		"queue_size":           len(wp.jobQueue),
		"queue_capacity":       cap(wp.jobQueue),
	}
}
