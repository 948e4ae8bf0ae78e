package features

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type tickRecorder struct {
	mu      sync.Mutex
	ticks   []int
	expired atomic.Int32
}

func (r *tickRecorder) onTick(_ *QuestionTimer, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, remaining)
}

func (r *tickRecorder) onExpire(_ *QuestionTimer) {
	r.expired.Add(1)
}

func (r *tickRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ticks...)
}

func TestTimerCountsDownAndExpiresOnce(t *testing.T) {
	m := NewQuestionTimerManager(zaptest.NewLogger(t), 5*time.Millisecond)
	rec := &tickRecorder{}

	timer := m.Start("c1", 0, 3, rec.onTick, rec.onExpire)
	<-timer.Done

	assert.Equal(t, []int{2, 1, 0}, rec.snapshot())
	assert.Equal(t, int32(1), rec.expired.Load())
	assert.Nil(t, m.running())
}

func TestTimerStartCancelsPrevious(t *testing.T) {
	m := NewQuestionTimerManager(zaptest.NewLogger(t), 5*time.Millisecond)
	first := &tickRecorder{}
	second := &tickRecorder{}

	old := m.Start("c1", 0, 1000, first.onTick, first.onExpire)
	next := m.Start("c2", 0, 20, second.onTick, second.onExpire)

	<-old.Done
	require.NotNil(t, m.running())
	assert.Equal(t, next.ID, m.running().ID)

	<-next.Done
	assert.Equal(t, int32(0), first.expired.Load())
	assert.Equal(t, int32(1), second.expired.Load())
}

func TestTimerStopFreezesRemaining(t *testing.T) {
	m := NewQuestionTimerManager(zaptest.NewLogger(t), 5*time.Millisecond)
	rec := &tickRecorder{}

	timer := m.Start("c1", 0, 1000, rec.onTick, rec.onExpire)
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, time.Second, time.Millisecond)

	stopped := m.Stop()
	require.Equal(t, timer, stopped)
	<-timer.Done

	frozen := timer.Remaining()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, timer.Remaining())
	assert.Equal(t, int32(0), rec.expired.Load())
	assert.Nil(t, m.Stop())
}

func TestTimerZeroRemainingExpiresImmediately(t *testing.T) {
	m := NewQuestionTimerManager(zaptest.NewLogger(t), time.Hour)
	rec := &tickRecorder{}

	timer := m.Start("c1", 3, 0, rec.onTick, rec.onExpire)
	<-timer.Done

	assert.Empty(t, rec.snapshot())
	assert.Equal(t, int32(1), rec.expired.Load())
}
