package features

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// QuestionTimer is the countdown of one (candidate, question) pair.
type QuestionTimer struct {
	ID            uint64
	CandidateID   string
	QuestionIndex int
	StartTime     time.Time
	CancelFunc    context.CancelFunc
	Done          chan struct{}

	remaining atomic.Int64
}

func (t *QuestionTimer) Remaining() int {
	return int(t.remaining.Load())
}

// TickFunc receives the remaining seconds after each decrement.
type TickFunc func(t *QuestionTimer, remaining int)

// ExpireFunc runs once when the countdown reaches zero.
type ExpireFunc func(t *QuestionTimer)

// QuestionTimerManager runs at most one countdown at a time. Starting a timer
// cancels the previous one.
type QuestionTimerManager struct {
	mu      sync.Mutex
	current *QuestionTimer
	seq     uint64
	tick    time.Duration
	logger  *zap.Logger
}

func NewQuestionTimerManager(logger *zap.Logger, tick time.Duration) *QuestionTimerManager {
	if tick <= 0 {
		tick = time.Second
	}
	return &QuestionTimerManager{
		logger: logger,
		tick:   tick,
	}
}

// Start begins counting down from remaining seconds. Callbacks run on the timer's own
// goroutine, never while the manager lock is held.
func (qtm *QuestionTimerManager) Start(candidateID string, questionIndex, remaining int, onTick TickFunc, onExpire ExpireFunc) *QuestionTimer {
	ctx, cancel := context.WithCancel(context.Background())

	qtm.mu.Lock()
	qtm.cancelLocked()
	qtm.seq++
	timer := &QuestionTimer{
		ID:            qtm.seq,
		CandidateID:   candidateID,
		QuestionIndex: questionIndex,
		StartTime:     time.Now(),
		CancelFunc:    cancel,
		Done:          make(chan struct{}),
	}
	timer.remaining.Store(int64(remaining))
	qtm.current = timer
	qtm.mu.Unlock()

	qtm.logger.Debug("Timer started",
		zap.String("candidateId", candidateID),
		zap.Int("questionIndex", questionIndex),
		zap.Int("remaining", remaining),
		zap.Uint64("timerId", timer.ID))

	go qtm.runTimer(ctx, timer, onTick, onExpire)
	return timer
}

// Stop cancels the running timer, if any, and returns it. It does not wait for the
// timer goroutine, which may itself be the caller.
func (qtm *QuestionTimerManager) Stop() *QuestionTimer {
	qtm.mu.Lock()
	defer qtm.mu.Unlock()
	return qtm.cancelLocked()
}

// running returns the running timer or nil.
func (qtm *QuestionTimerManager) running() *QuestionTimer {
	qtm.mu.Lock()
	defer qtm.mu.Unlock()
	return qtm.current
}

func (qtm *QuestionTimerManager) cancelLocked() *QuestionTimer {
	timer := qtm.current
	if timer == nil {
		return nil
	}
	timer.CancelFunc()
	qtm.current = nil
	qtm.logger.Debug("Timer cancelled",
		zap.String("candidateId", timer.CandidateID),
		zap.Int("questionIndex", timer.QuestionIndex),
		zap.Uint64("timerId", timer.ID))
	return timer
}

// release clears timer if it is still the current one.
func (qtm *QuestionTimerManager) release(timer *QuestionTimer) bool {
	qtm.mu.Lock()
	defer qtm.mu.Unlock()
	if qtm.current != timer {
		return false
	}
	qtm.current = nil
	return true
}

func (qtm *QuestionTimerManager) runTimer(ctx context.Context, timer *QuestionTimer, onTick TickFunc, onExpire ExpireFunc) {
	defer close(timer.Done)

	if timer.Remaining() <= 0 {
		if qtm.release(timer) {
			onExpire(timer)
		}
		return
	}

	ticker := time.NewTicker(qtm.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			remaining := int(timer.remaining.Add(-1))
			onTick(timer, remaining)
			if remaining > 0 {
				continue
			}

			if qtm.release(timer) {
				qtm.logger.Info("Question timeout reached",
					zap.String("candidateId", timer.CandidateID),
					zap.Int("questionIndex", timer.QuestionIndex))
				onExpire(timer)
			}
			return
		}
	}
}

// Shutdown cancels the running timer.
func (qtm *QuestionTimerManager) Shutdown() {
	qtm.logger.Info("Shutting down question timer manager")
	qtm.Stop()
}
