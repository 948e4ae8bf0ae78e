package features

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewer/internal/metrics"
	"interviewer/internal/model"
	repo "interviewer/internal/repo"
	sv "interviewer/internal/service"
	srt "interviewer/internal/utils/sort"
)

type ISession interface {
	CreateCandidate(ctx context.Context, profile model.Profile) (*Intake, error)
	CompleteProfile(ctx context.Context, candidateID string, profile model.Profile) (*SessionView, error)
	OpenSession(ctx context.Context, candidateID string, resume bool) (*SessionView, error)
	SubmitAnswer(ctx context.Context, text string, auto bool) (*SessionView, error)
	SetDraft(ctx context.Context, text string) (*SessionView, error)
	Pause(ctx context.Context) (*SessionView, error)
	Resume(ctx context.Context) (*SessionView, error)
	Close(ctx context.Context) error
	Current() *SessionView
	DetectResumable(ctx context.Context) (*model.Candidate, error)
	Candidate(ctx context.Context, candidateID string) (*model.Candidate, error)
	ListCandidates(ctx context.Context, q srt.Query) ([]*model.Candidate, error)
}

type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateProfileIncomplete SessionState = "profile_incomplete"
	StateFetchingQuestions SessionState = "fetching_questions"
	StateQuestionActive    SessionState = "question_active"
	StatePaused            SessionState = "paused"
	StateGrading           SessionState = "grading"
	StateFinalizingSummary SessionState = "finalizing_summary"
	StateCompleted         SessionState = "completed"
)

var transitions = map[SessionState][]SessionState{
	StateIdle:              {StateProfileIncomplete, StateFetchingQuestions, StateQuestionActive, StatePaused, StateFinalizingSummary, StateCompleted},
	StateFetchingQuestions: {StateQuestionActive, StatePaused, StateFinalizingSummary},
	StateQuestionActive:    {StatePaused, StateGrading},
	StatePaused:            {StateQuestionActive},
	StateGrading:           {StateQuestionActive, StateFinalizingSummary},
	StateFinalizingSummary: {StateCompleted},
}

// Options tunes the interview every session runs.
type Options struct {
	Role           string
	Stack          []string
	QuestionCount  int
	Tick           time.Duration
	RequestTimeout time.Duration
}

// SessionView is what the candidate's client renders.
type SessionView struct {
	CandidateID     string          `json:"candidateId"`
	State           SessionState    `json:"state"`
	QuestionIndex   int             `json:"questionIndex"`
	QuestionsLength int             `json:"questionsLength"`
	Question        *model.Question `json:"question,omitempty"`
	Remaining       int             `json:"remaining"`
	Draft           string          `json:"draft,omitempty"`
	Missing         []string        `json:"missing,omitempty"`
}

// Intake is the outcome of registering a candidate from a parsed resume.
type Intake struct {
	Candidate *model.Candidate `json:"candidate"`
	Missing   []string         `json:"missing,omitempty"`
	Session   *SessionView     `json:"session,omitempty"`
}

// session is the single active subject of the controller.
type session struct {
	candidateID string
	state       SessionState
	questions   []model.Question
	index       int
	remaining   int
	draft       string
	timerID     uint64
	missing     []string
}

func (s *session) to(next SessionState) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", model.ErrInvalidState, s.state, next)
}

func (s *session) question() *model.Question {
	if s.index < 0 || s.index >= len(s.questions) {
		return nil
	}
	q := s.questions[s.index]
	return &q
}

func (s *session) view() *SessionView {
	v := &SessionView{
		CandidateID:     s.candidateID,
		State:           s.state,
		QuestionIndex:   s.index,
		QuestionsLength: len(s.questions),
		Remaining:       s.remaining,
		Draft:           s.draft,
		Missing:         s.missing,
	}
	if s.state == StateQuestionActive || s.state == StatePaused {
		v.Question = s.question()
	}
	return v
}

// Controller owns the active interview session. Every candidate mutation goes through
// the repository's serialized Update; mu orders timer callbacks against user actions.
type Controller struct {
	repo     repo.ICandidate
	client   sv.Client
	timers   *QuestionTimerManager
	pool     *GradingWorkerPool
	notifier Notifier
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session *session
	busy    bool

	inflight   sync.Map // key: candidateID, value: *sync.WaitGroup
	finalizing sync.Map // key: candidateID, value: struct{}
	background sync.WaitGroup
}

func New(candidates repo.ICandidate, client sv.Client, pool *GradingWorkerPool, notifier Notifier, opts Options, logger *zap.Logger) *Controller {
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 6
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if notifier == nil {
		notifier = Notifiers{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		repo:     candidates,
		client:   client,
		timers:   NewQuestionTimerManager(logger, opts.Tick),
		pool:     pool,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	pool.Start(c, logger)
	return c
}

// CreateCandidate registers a candidate from a parsed resume. A complete profile opens
// a fresh session straight away; otherwise the missing fields are reported.
func (c *Controller) CreateCandidate(ctx context.Context, profile model.Profile) (*Intake, error) {
	candidate := &model.Candidate{
		ID:        uuid.NewString(),
		Questions: []model.Question{},
		Answers:   []model.Answer{},
		CreatedAt: c.now().UTC(),
	}
	candidate.ApplyProfile(profile)

	missing := candidate.MissingFields()
	candidate.Stage = model.StageReady
	if len(missing) > 0 {
		candidate.Stage = model.StageProfileIncomplete
	}

	if err := c.repo.Create(ctx, candidate); err != nil {
		c.logger.Error("Failed to create candidate", zap.String("candidateId", candidate.ID), zap.Error(err))
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, candidate.ID, err)
		}
		return nil, err
	}
	c.logger.Info("Created candidate",
		zap.String("candidateId", candidate.ID),
		zap.Strings("missing", missing))

	intake := &Intake{Candidate: candidate, Missing: missing}
	if len(missing) > 0 {
		return intake, nil
	}

	view, err := c.OpenSession(ctx, candidate.ID, false)
	if err != nil {
		return intake, err
	}
	intake.Session = view
	if fresh, err := c.repo.Get(ctx, candidate.ID); err == nil {
		intake.Candidate = fresh
	}
	return intake, nil
}

// CompleteProfile applies the correction form and proceeds as a fresh open.
func (c *Controller) CompleteProfile(ctx context.Context, candidateID string, profile model.Profile) (*SessionView, error) {
	var missing []string
	_, err := c.repo.Update(ctx, candidateID, func(cand *model.Candidate) error {
		if cand.IsFinished() || len(cand.Answers) > 0 {
			return fmt.Errorf("%w: interview already started", model.ErrInvalidState)
		}
		cand.ApplyProfile(profile)
		missing = cand.MissingFields()
		if len(missing) == 0 {
			cand.Stage = model.StageReady
		}
		return nil
	})
	if err != nil {
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, candidateID, err)
		}
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", model.ErrProfileIncomplete, strings.Join(missing, ", "))
	}

	return c.OpenSession(ctx, candidateID, false)
}

// OpenSession makes candidateID the sole active session, fetching its questions first
// when it has none. The question index always continues from the recorded answers;
// resume restores the persisted countdown and pause flag.
func (c *Controller) OpenSession(ctx context.Context, candidateID string, resume bool) (*SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return nil, model.ErrBusy
	}

	candidate, err := c.repo.Get(ctx, candidateID)
	if err != nil {
		c.logger.Error("Failed to load candidate", zap.String("candidateId", candidateID), zap.Error(err))
		return nil, err
	}

	c.detachLocked()
	s := &session{candidateID: candidateID, state: StateIdle, questions: candidate.Questions}
	c.session = s

	if missing := candidate.MissingFields(); len(missing) > 0 && len(candidate.Questions) == 0 {
		s.missing = missing
		_ = s.to(StateProfileIncomplete)
		return nil, fmt.Errorf("%w: missing %s", model.ErrProfileIncomplete, strings.Join(missing, ", "))
	}

	if candidate.IsFinished() {
		s.index = len(candidate.Answers)
		_ = s.to(StateCompleted)
		return s.view(), nil
	}

	if len(candidate.Questions) == 0 {
		if candidate, err = c.fetchQuestionsLocked(ctx, s); err != nil {
			if c.session == s {
				c.session = nil
			}
			return nil, err
		}
		if c.session != s {
			return nil, model.ErrNoActiveSession
		}
	}

	index := len(candidate.Answers)
	s.questions = candidate.Questions
	s.index = index

	if index >= len(candidate.Questions) {
		c.logger.Info("Recovering unfinished finalization", zap.String("candidateId", candidateID))
		if err := s.to(StateFinalizingSummary); err != nil {
			return nil, err
		}
		c.startFinalize(candidateID)
		return s.view(), nil
	}

	budget := candidate.Questions[index].Difficulty.Budget()
	remaining, paused := budget, false
	if resume && candidate.Timer != nil && candidate.Timer.QuestionIndex == index && candidate.Timer.Remaining >= 0 {
		remaining = min(candidate.Timer.Remaining, budget)
		paused = candidate.Paused
	}

	now := c.now().UTC()
	_, err = c.repo.Update(ctx, candidateID, func(cand *model.Candidate) error {
		cand.CurrentIndex = len(cand.Answers)
		cand.QuestionsLength = len(cand.Questions)
		cand.Timer = &model.TimerSnapshot{QuestionIndex: index, Remaining: remaining, LastUpdatedAt: now}
		cand.Paused = paused
		cand.Stage = model.StageInProgress
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to persist session start", zap.String("candidateId", candidateID), zap.Error(err))
		c.session = nil
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, candidateID, err)
		}
		return nil, err
	}

	s.remaining = remaining
	if paused {
		_ = s.to(StatePaused)
		c.emit(model.Event{Type: model.EventPaused, CandidateID: candidateID, QuestionIndex: index, Remaining: remaining})
	} else {
		_ = s.to(StateQuestionActive)
		c.startTimerLocked(s)
		c.emit(model.Event{Type: model.EventQuestionStarted, CandidateID: candidateID, QuestionIndex: index, Remaining: remaining})
	}

	c.logger.Info("Session opened",
		zap.String("candidateId", candidateID),
		zap.Int("questionIndex", index),
		zap.Int("remaining", remaining),
		zap.Bool("resume", resume),
		zap.Bool("paused", paused))
	return s.view(), nil
}

// fetchQuestionsLocked releases mu while the generator runs; busy rejects other opens meanwhile.
func (c *Controller) fetchQuestionsLocked(ctx context.Context, s *session) (*model.Candidate, error) {
	if err := s.to(StateFetchingQuestions); err != nil {
		return nil, err
	}
	c.busy = true
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	questions, err := c.client.GenerateQuestions(reqCtx, c.opts.Role, c.opts.Stack)
	cancel()

	c.mu.Lock()
	c.busy = false

	if err != nil {
		c.logger.Warn("Question generation failed", zap.String("candidateId", s.candidateID), zap.Error(err))
		return nil, err
	}
	if err := c.validateQuestions(questions); err != nil {
		c.logger.Warn("Question generation returned a malformed set",
			zap.String("candidateId", s.candidateID),
			zap.Int("count", len(questions)),
			zap.Error(err))
		return nil, err
	}

	candidate, err := c.repo.Update(ctx, s.candidateID, func(cand *model.Candidate) error {
		if len(cand.Questions) == 0 {
			cand.Questions = questions
			cand.QuestionsLength = len(questions)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to persist questions", zap.String("candidateId", s.candidateID), zap.Error(err))
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, s.candidateID, err)
		}
		return nil, err
	}
	c.logger.Info("Questions generated", zap.String("candidateId", s.candidateID), zap.Int("count", len(questions)))
	return candidate, nil
}

func (c *Controller) validateQuestions(questions []model.Question) error {
	if len(questions) != c.opts.QuestionCount {
		return &model.ValidationError{Msg: fmt.Sprintf("expected %d questions, got %d", c.opts.QuestionCount, len(questions))}
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return &model.ValidationError{Msg: fmt.Sprintf("question %d has no text", i)}
		}
		if !q.Difficulty.Valid() {
			return &model.ValidationError{Msg: fmt.Sprintf("question %d has unknown difficulty %q", i, q.Difficulty)}
		}
	}
	return nil
}

// SubmitAnswer records the answer to the active question. Manual answers must not be
// blank; an automatic one falls back to the draft and then to the sentinel text.
func (c *Controller) SubmitAnswer(ctx context.Context, text string, auto bool) (*SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil, model.ErrNoActiveSession
	}
	if s.state != StateQuestionActive {
		return nil, fmt.Errorf("%w: cannot submit while %s", model.ErrInvalidState, s.state)
	}
	if !auto && strings.TrimSpace(text) == "" {
		return nil, model.ErrEmptyAnswer
	}
	if auto && strings.TrimSpace(text) == "" {
		text = s.draft
	}
	return c.submitLocked(ctx, s, text, auto)
}

func (c *Controller) submitLocked(ctx context.Context, s *session, text string, auto bool) (*SessionView, error) {
	if auto && strings.TrimSpace(text) == "" {
		text = model.AutoSubmittedText
	}
	if err := s.to(StateGrading); err != nil {
		return nil, err
	}
	c.timers.Stop()
	s.timerID = 0

	index := s.index
	q := s.questions[index]
	budget := q.Difficulty.Budget()
	answer := model.Answer{
		QuestionID:       q.ID,
		QuestionText:     q.Text,
		Difficulty:       q.Difficulty,
		ResponseText:     text,
		TimeTakenSeconds: budget - s.remaining,
		AutoSubmitted:    auto,
	}

	last := index+1 >= len(s.questions)
	var nextRemaining int
	if !last {
		nextRemaining = s.questions[index+1].Difficulty.Budget()
	}

	now := c.now().UTC()
	_, err := c.repo.Update(ctx, s.candidateID, func(cand *model.Candidate) error {
		if len(cand.Answers) != index {
			return fmt.Errorf("%w: answer %d already recorded", model.ErrInvalidState, index)
		}
		cand.Answers = append(cand.Answers, answer)
		cand.CurrentIndex = len(cand.Answers)
		cand.Paused = false
		if last {
			cand.Timer = nil
			cand.Stage = model.StageFinalizing
		} else {
			cand.Timer = &model.TimerSnapshot{QuestionIndex: index + 1, Remaining: nextRemaining, LastUpdatedAt: now}
		}
		return nil
	})
	if err != nil && !model.IsPersistence(err) {
		c.logger.Error("Failed to record answer", zap.String("candidateId", s.candidateID), zap.Int("questionIndex", index), zap.Error(err))
		s.state = StateQuestionActive
		c.startTimerLocked(s)
		return nil, err
	}

	metrics.AnswerSubmitted(auto)
	s.draft = ""
	c.logger.Info("Answer recorded",
		zap.String("candidateId", s.candidateID),
		zap.Int("questionIndex", index),
		zap.Bool("auto", auto),
		zap.Int("timeTaken", answer.TimeTakenSeconds))
	c.emit(model.Event{Type: model.EventAnswerSubmitted, CandidateID: s.candidateID, QuestionIndex: index})
	c.enqueueGrading(GradingJob{
		CandidateID:  s.candidateID,
		AnswerIndex:  index,
		QuestionID:   q.ID,
		QuestionText: q.Text,
		ResponseText: text,
	})

	if err != nil {
		// the answer stands in memory; the user reopens with resume once storage is back
		c.logger.Error("Failed to persist answer", zap.String("candidateId", s.candidateID), zap.Error(err))
		c.persistenceFailed(ctx, s.candidateID, err)
		c.session = nil
		return nil, err
	}

	if last {
		_ = s.to(StateFinalizingSummary)
		s.index = index + 1
		s.remaining = 0
		c.startFinalize(s.candidateID)
		return s.view(), nil
	}

	s.index = index + 1
	s.remaining = nextRemaining
	_ = s.to(StateQuestionActive)
	c.startTimerLocked(s)
	c.emit(model.Event{Type: model.EventQuestionStarted, CandidateID: s.candidateID, QuestionIndex: s.index, Remaining: s.remaining})
	return s.view(), nil
}

// SetDraft keeps the text typed so far; a timeout submits it.
func (c *Controller) SetDraft(ctx context.Context, text string) (*SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil, model.ErrNoActiveSession
	}
	if s.state != StateQuestionActive && s.state != StatePaused {
		return nil, fmt.Errorf("%w: no question is open", model.ErrInvalidState)
	}
	s.draft = text
	return s.view(), nil
}

// Pause freezes the countdown and persists it. Outside an active question it does nothing.
func (c *Controller) Pause(ctx context.Context) (*SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil, model.ErrNoActiveSession
	}
	if s.state != StateQuestionActive {
		return s.view(), nil
	}

	c.timers.Stop()
	s.timerID = 0
	_ = s.to(StatePaused)

	now := c.now().UTC()
	_, err := c.repo.Update(ctx, s.candidateID, func(cand *model.Candidate) error {
		cand.Timer = &model.TimerSnapshot{QuestionIndex: s.index, Remaining: s.remaining, LastUpdatedAt: now}
		cand.Paused = true
		return nil
	})
	c.emit(model.Event{Type: model.EventPaused, CandidateID: s.candidateID, QuestionIndex: s.index, Remaining: s.remaining})
	if err != nil {
		c.logger.Error("Failed to persist pause", zap.String("candidateId", s.candidateID), zap.Error(err))
		c.persistenceFailed(ctx, s.candidateID, err)
		return s.view(), err
	}
	return s.view(), nil
}

// Resume restarts the countdown from the persisted remaining value.
func (c *Controller) Resume(ctx context.Context) (*SessionView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil, model.ErrNoActiveSession
	}
	if s.state != StatePaused {
		return s.view(), nil
	}

	now := c.now().UTC()
	_, err := c.repo.Update(ctx, s.candidateID, func(cand *model.Candidate) error {
		if cand.Timer != nil && cand.Timer.QuestionIndex == s.index {
			s.remaining = cand.Timer.Remaining
		}
		cand.Timer = &model.TimerSnapshot{QuestionIndex: s.index, Remaining: s.remaining, LastUpdatedAt: now}
		cand.Paused = false
		return nil
	})
	if err != nil && !model.IsPersistence(err) {
		return nil, err
	}

	_ = s.to(StateQuestionActive)
	c.startTimerLocked(s)
	c.emit(model.Event{Type: model.EventResumed, CandidateID: s.candidateID, QuestionIndex: s.index, Remaining: s.remaining})
	if err != nil {
		c.logger.Error("Failed to persist resume", zap.String("candidateId", s.candidateID), zap.Error(err))
		c.persistenceFailed(ctx, s.candidateID, err)
		return s.view(), err
	}
	return s.view(), nil
}

// Close detaches the active session. The persisted snapshot stays for a later resume.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return model.ErrNoActiveSession
	}
	c.logger.Info("Session closed", zap.String("candidateId", c.session.candidateID))
	c.detachLocked()
	return nil
}

func (c *Controller) Current() *SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	return c.session.view()
}

// DetectResumable returns the first unfinished persisted candidate, if any.
func (c *Controller) DetectResumable(ctx context.Context) (*model.Candidate, error) {
	candidates, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.FindResumable(candidates), nil
}

func (c *Controller) Candidate(ctx context.Context, candidateID string) (*model.Candidate, error) {
	return c.repo.Get(ctx, candidateID)
}

func (c *Controller) ListCandidates(ctx context.Context, q srt.Query) ([]*model.Candidate, error) {
	candidates, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return srt.Apply(candidates, q)
}

// Shutdown stops the timer, drains grading and waits for running finalizations.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.detachLocked()
	c.timers.Shutdown()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.pool.Stop()
		c.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		return ctx.Err()
	}
}

// PoolMetrics reports the grading pool counters.
func (c *Controller) PoolMetrics() map[string]interface{} {
	return c.pool.GetMetrics()
}

func (c *Controller) detachLocked() {
	if c.session == nil {
		return
	}
	if c.session.timerID != 0 {
		c.timers.Stop()
		c.session.timerID = 0
	}
	c.session = nil
}

func (c *Controller) startTimerLocked(s *session) {
	t := c.timers.Start(s.candidateID, s.index, s.remaining, c.onTick, c.onExpire)
	s.timerID = t.ID
}

// activeFor returns the session t belongs to, or nil for a stale timer.
func (c *Controller) activeFor(t *QuestionTimer) *session {
	s := c.session
	if s == nil || s.timerID != t.ID || s.state != StateQuestionActive {
		return nil
	}
	return s
}

func (c *Controller) onTick(t *QuestionTimer, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.activeFor(t)
	if s == nil {
		return
	}
	s.remaining = max(remaining, 0)

	now := c.now().UTC()
	_, err := c.repo.Update(c.ctx, s.candidateID, func(cand *model.Candidate) error {
		cand.Timer = &model.TimerSnapshot{QuestionIndex: s.index, Remaining: s.remaining, LastUpdatedAt: now}
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to persist timer", zap.String("candidateId", s.candidateID), zap.Error(err))
		if model.IsPersistence(err) {
			c.persistenceFailed(c.ctx, s.candidateID, err)
		}
	}
	c.emit(model.Event{Type: model.EventTick, CandidateID: s.candidateID, QuestionIndex: s.index, Remaining: s.remaining})
}

func (c *Controller) onExpire(t *QuestionTimer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.activeFor(t)
	if s == nil {
		return
	}
	s.remaining = 0
	if _, err := c.submitLocked(c.ctx, s, s.draft, true); err != nil {
		c.logger.Error("Auto submit failed",
			zap.String("candidateId", t.CandidateID),
			zap.Int("questionIndex", t.QuestionIndex),
			zap.Error(err))
	}
}

func (c *Controller) inflightFor(candidateID string) *sync.WaitGroup {
	wg, _ := c.inflight.LoadOrStore(candidateID, &sync.WaitGroup{})
	return wg.(*sync.WaitGroup)
}

// enqueueGrading hands the job to the pool without holding up the caller. When the
// pool refuses it the job runs on its own goroutine.
func (c *Controller) enqueueGrading(job GradingJob) {
	c.inflightFor(job.CandidateID).Add(1)
	go func() {
		if !c.pool.EnqueueJob(job) {
			c.gradeAnswerSafe(c.ctx, job)
		}
	}()
}

func (c *Controller) gradeAnswerSafe(ctx context.Context, job GradingJob) {
	defer c.inflightFor(job.CandidateID).Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while grading answer",
				zap.String("candidateId", job.CandidateID),
				zap.Int("answerIndex", job.AnswerIndex),
				zap.Any("panic", r))
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	grade, err := c.client.GradeAnswer(reqCtx, job.QuestionText, job.ResponseText)
	cancel()
	if err != nil {
		c.logger.Warn("Grading failed, answer left unscored",
			zap.String("candidateId", job.CandidateID),
			zap.Int("answerIndex", job.AnswerIndex),
			zap.Error(err))
		c.emit(model.Event{
			Type:          model.EventGradingFailed,
			CandidateID:   job.CandidateID,
			QuestionIndex: job.AnswerIndex,
			Message:       "answer could not be graded",
		})
		return
	}

	_, err = c.repo.Update(ctx, job.CandidateID, func(cand *model.Candidate) error {
		if job.AnswerIndex >= len(cand.Answers) || cand.Answers[job.AnswerIndex].QuestionID != job.QuestionID {
			return fmt.Errorf("%w: answer %d not found", model.ErrInvalidState, job.AnswerIndex)
		}
		score, feedback := grade.Score, grade.Feedback
		cand.Answers[job.AnswerIndex].Score = &score
		cand.Answers[job.AnswerIndex].Feedback = &feedback
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to persist grade",
			zap.String("candidateId", job.CandidateID),
			zap.Int("answerIndex", job.AnswerIndex),
			zap.Error(err))
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, job.CandidateID, err)
		} else {
			return
		}
	}

	score := grade.Score
	c.emit(model.Event{
		Type:          model.EventAnswerGraded,
		CandidateID:   job.CandidateID,
		QuestionIndex: job.AnswerIndex,
		Score:         &score,
		Message:       grade.Feedback,
	})
}

// startFinalize runs the summary step once per candidate, after its pending grades.
func (c *Controller) startFinalize(candidateID string) {
	if _, running := c.finalizing.LoadOrStore(candidateID, struct{}{}); running {
		return
	}
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		defer c.finalizing.Delete(candidateID)
		c.finalize(candidateID)
	}()
}

func (c *Controller) finalize(candidateID string) {
	c.inflightFor(candidateID).Wait()
	ctx := c.ctx

	candidate, err := c.repo.Get(ctx, candidateID)
	if err != nil {
		c.logger.Error("Failed to load candidate for summary", zap.String("candidateId", candidateID), zap.Error(err))
		return
	}
	if candidate.IsFinished() {
		c.markCompleted(candidateID)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	summary, sumErr := c.client.FinalSummary(reqCtx, candidate)
	cancel()

	_, err = c.repo.Update(ctx, candidateID, func(cand *model.Candidate) error {
		cand.Stage = model.StageCompleted
		cand.Timer = nil
		cand.Paused = false
		if sumErr == nil && len(cand.Answers) == cand.QuestionsLength {
			score, text := summary.FinalScorePercent, summary.Summary
			cand.FinalScore = &score
			cand.Summary = &text
		}
		return nil
	})
	c.markCompleted(candidateID)
	if err != nil {
		c.logger.Error("Failed to persist session outcome", zap.String("candidateId", candidateID), zap.Error(err))
		if model.IsPersistence(err) {
			c.persistenceFailed(ctx, candidateID, err)
		}
		return
	}

	if sumErr != nil {
		c.logger.Warn("Summary failed, session completed without a score",
			zap.String("candidateId", candidateID),
			zap.Error(sumErr))
		metrics.SessionCompleted(false)
		c.emit(model.Event{
			Type:          model.EventSummaryFailed,
			CandidateID:   candidateID,
			QuestionIndex: len(candidate.Answers),
			Message:       "the summary could not be generated",
		})
		return
	}

	c.logger.Info("Session completed",
		zap.String("candidateId", candidateID),
		zap.Float64("finalScore", summary.FinalScorePercent))
	metrics.SessionCompleted(true)
	score := summary.FinalScorePercent
	c.emit(model.Event{
		Type:          model.EventSessionCompleted,
		CandidateID:   candidateID,
		QuestionIndex: len(candidate.Answers),
		FinalScore:    &score,
		Summary:       summary.Summary,
	})
}

func (c *Controller) markCompleted(candidateID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.session; s != nil && s.candidateID == candidateID && s.state == StateFinalizingSummary {
		_ = s.to(StateCompleted)
	}
}

func (c *Controller) persistenceFailed(ctx context.Context, candidateID string, err error) {
	metrics.PersistenceFailure()
	c.emit(model.Event{
		Type:        model.EventPersistenceError,
		CandidateID: candidateID,
		Message:     err.Error(),
	})
}

func (c *Controller) emit(event model.Event) {
	event.Timestamp = c.now().UTC()
	c.notifier.Notify(c.ctx, event)
}
