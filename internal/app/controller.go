package app

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

// DelayFunc schedules fn after d and returns a cancel func. Injectable so
// tests can run the reveal/prompt delays synchronously.
type DelayFunc func(d time.Duration, fn func()) (cancel func())

func realDelay(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Controller is the session lifecycle state machine for one connected player.
// It owns all mutable session state, orchestrates start, in-flight prefetch of
// the next playthrough, atomic restart, and finalization against the backend.
//
// Execution is event-driven: backend calls overlap asynchronously but the
// controller enforces explicit ordering (life spend strictly before question
// fetch, no question rendered before its data and timer are ready, at most one
// start/restart in flight).
type Controller struct {
	userID   string
	backends Backends
	rules    Rules
	schedule RewardSchedule
	votes    VotePolicy

	now   func() time.Time
	delay DelayFunc

	rndMu sync.Mutex
	rnd   *rand.Rand

	timer    *CountdownTimer
	prefetch *PrefetchBuffer
	gestures *GestureNavigator

	mu          sync.Mutex
	session     *domain.Session
	usage       domain.LifelineUsage
	attempt     domain.AnswerAttempt
	resolver    *answerResolver
	spares      []domain.Question
	lastCorrect bool
	timedOut    bool

	pendingContinueCost    int
	pendingContinueTimeout bool

	questionShownAt time.Time
	transitioning   bool
	dialogOpen      bool
	isStarting      bool
	closed          bool
	cancelDelay     func()

	events chan Event
}

func NewController(userID string, b Backends, rules Rules, schedule RewardSchedule, votes VotePolicy) *Controller {
	return NewControllerWithClock(userID, b, rules, schedule, votes,
		time.Now, rand.New(rand.NewSource(time.Now().UnixNano())), realDelay)
}

// NewControllerWithClock is test-only for deterministic time, randomness and
// delay handling.
func NewControllerWithClock(userID string, b Backends, rules Rules, schedule RewardSchedule, votes VotePolicy,
	now func() time.Time, rnd *rand.Rand, delay DelayFunc) *Controller {
	if schedule == nil {
		schedule = DefaultRewardSchedule
	}
	if votes == nil {
		votes = DefaultVotePolicy
	}
	c := &Controller{
		userID:   userID,
		backends: b,
		rules:    rules.Normalize(),
		schedule: schedule,
		votes:    votes,
		now:      now,
		rnd:      rnd,
		delay:    delay,
		prefetch: NewPrefetchBuffer(),
		events:   make(chan Event, 32),
	}
	c.timer = NewCountdownTimer(c.handleTimeout)
	c.gestures = NewGestureNavigator(c.rules.SwipeThreshold, c.rules.SwipeDamping, c.gestureBlocked)
	return c
}

// Events returns the stream of state changes for the transport to render.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State reports the current game-level state.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		if c.isStarting {
			return domain.StateStarting
		}
		return domain.StateIdle
	}
	return c.session.State
}

// Snapshot copies the current session for inspection.
func (c *Controller) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Session{State: domain.StateIdle}
	}
	s := *c.session
	s.Questions = append([]domain.Question(nil), c.session.Questions...)
	s.ResponseTimes = append([]float64(nil), c.session.ResponseTimes...)
	return s
}

// Attempt copies the transient per-question attempt record.
func (c *Controller) Attempt() domain.AnswerAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// PrefetchState exposes the restart buffer slot state.
func (c *Controller) PrefetchState() PrefetchState {
	return c.prefetch.State()
}

// Start begins a playthrough: spend a life (strictly before the question
// fetch), fetch and shuffle the set, credit the start bonus, and only then
// flip to Playing with the timer armed. A second concurrent start is rejected.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isStarting {
		c.mu.Unlock()
		return domain.ErrStartInFlight
	}
	c.isStarting = true
	c.mu.Unlock()
	return c.runStart(ctx)
}

// runStart executes the full Starting path. The isStarting guard must already
// be held by the caller; it is cleared on return.
func (c *Controller) runStart(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.isStarting = false
		c.mu.Unlock()
	}()

	if _, err := c.backends.Wallet.SpendLife(ctx, c.userID); err != nil {
		if errors.Is(err, domain.ErrNoLives) {
			c.mu.Lock()
			c.session = &domain.Session{State: domain.StateOutOfLives}
			c.emitLocked(Event{Type: EventOutOfLives})
			c.mu.Unlock()
		}
		return err
	}

	set, err := c.fetchPrepared(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.installSessionLocked(set)
	c.mu.Unlock()

	c.creditDetached(domain.StartRewardSourceID(c.currentInstanceID()), c.rules.StartBonus)
	c.broadcastWalletDetached()
	c.prefetchNextDetached()
	return nil
}

// Restart begins the next playthrough. With a Ready prefetch buffer the
// UI-visible swap (new questions, index 0, counters and flags reset, timer
// reset) applies as one atomic batch with no intermediate render; backend
// bookkeeping runs concurrently and is awaited but never gates the swap.
// Without a prefetch the full Starting path runs instead.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.isStarting {
		c.mu.Unlock()
		return domain.ErrStartInFlight
	}
	if c.session == nil || (c.session.State != domain.StateFinished && c.session.State != domain.StateAwaitingContinue) {
		c.mu.Unlock()
		return domain.ErrSessionNotActive
	}
	c.isStarting = true

	set, ok := c.prefetch.TakeReady()
	if !ok {
		c.mu.Unlock()
		return c.runStart(ctx)
	}
	c.installSessionLocked(set)
	instanceID := c.session.InstanceID
	c.mu.Unlock()

	// Bookkeeping overlaps the swap but completes before Restart returns.
	_, err := c.backends.Wallet.SpendLife(ctx, c.userID)
	if err != nil {
		c.mu.Lock()
		c.timer.Cancel()
		if errors.Is(err, domain.ErrNoLives) {
			if c.session != nil {
				c.session.State = domain.StateOutOfLives
				c.emitLocked(Event{Type: EventOutOfLives})
			}
		} else {
			// Spend outcome unknown; the announced session cannot keep
			// playing without its bookkeeping, so drop it.
			c.session = nil
			c.resolver = nil
			c.attempt.Clear()
			c.transitioning = false
			c.emitLocked(Event{Type: EventNotice, Payload: NoticeView{Message: "restart failed, try again"}})
			c.emitLocked(Event{Type: EventAbandoned})
		}
		c.isStarting = false
		c.mu.Unlock()
		return err
	}

	c.creditDetached(domain.StartRewardSourceID(instanceID), c.rules.StartBonus)
	c.broadcastWalletDetached()
	c.prefetchNextDetached()

	c.mu.Lock()
	c.isStarting = false
	c.mu.Unlock()
	return nil
}

// installSessionLocked swaps in a prepared set as a fresh playthrough. The
// first question event is emitted only after the timer is armed, so a client
// never renders an unready screen.
func (c *Controller) installSessionLocked(set preparedSet) {
	c.session = &domain.Session{
		InstanceID:  uuid.NewString(),
		Questions:   set.questions,
		State:       domain.StatePlaying,
		CoinsEarned: c.rules.StartBonus,
	}
	c.spares = set.spares
	c.usage = domain.LifelineUsage{}
	c.attempt.Clear()
	c.resolver = newAnswerResolver(c.session.Questions[0], &c.attempt)
	c.lastCorrect = false
	c.timedOut = false
	c.transitioning = false
	c.dialogOpen = false
	c.questionShownAt = c.now()
	c.timer.Reset(c.rules.QuestionTime)
	c.emitLocked(Event{Type: EventStarted})
	c.emitLocked(Event{Type: EventQuestion, Payload: c.questionViewLocked()})
}

// fetchPrepared loads the session set plus spares for the skip lifeline and
// shuffles answer letters with the anti-repetition constraint.
func (c *Controller) fetchPrepared(ctx context.Context) (preparedSet, error) {
	n := c.rules.SessionLength + c.rules.SpareQuestions
	questions, err := c.backends.Source.FetchQuestionSet(ctx, n)
	if err != nil {
		return preparedSet{}, err
	}
	if len(questions) < c.rules.SessionLength {
		return preparedSet{}, domain.ErrPoolExhausted
	}

	c.rndMu.Lock()
	main := ShuffleSet(questions[:c.rules.SessionLength], c.rnd)
	c.rndMu.Unlock()

	spares := append([]domain.Question(nil), questions[c.rules.SessionLength:]...)
	return preparedSet{questions: main, spares: spares}, nil
}

// SelectAnswer feeds an answer tap into the per-question state machine. Taps
// outside Playing, during a transition, or after a selection are stale UI
// events and are dropped silently.
func (c *Controller) SelectAnswer(key domain.AnswerKey) {
	if key != domain.KeyA && key != domain.KeyB && key != domain.KeyC {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.State != domain.StatePlaying || c.transitioning {
		return
	}
	if c.attempt.RemovedKey != "" && key == c.attempt.RemovedKey {
		return // option no longer on display
	}
	c.selectLocked(key)
}

func (c *Controller) selectLocked(key domain.AnswerKey) {
	outcome, err := c.resolver.Select(key)
	if err != nil {
		return // stale or duplicate event, dropped
	}
	if outcome.NeedSecond {
		c.emitLocked(Event{Type: EventFirstAttempt, Payload: FirstAttemptView{
			Index: c.session.CurrentIndex,
			Key:   key,
		}})
		return
	}
	if !outcome.Resolved {
		return
	}

	c.timer.Cancel()
	seconds := c.now().Sub(c.questionShownAt).Seconds()
	c.session.ResponseTimes = append(c.session.ResponseTimes, seconds)

	index := c.session.CurrentIndex
	question := c.session.Questions[index]
	timedOut := c.timedOut || key == domain.KeyTimeout

	if outcome.Correct {
		c.session.CorrectCount++
		reward := c.schedule(index)
		c.session.CoinsEarned += reward
		c.lastCorrect = true
		c.creditDetached(domain.RewardSourceID(c.session.InstanceID, index), reward)

		result := Event{Type: EventAnswerResult, Payload: AnswerResultView{
			Index:           index,
			Selected:        key,
			Correct:         true,
			CorrectKey:      question.CorrectKey(),
			Reward:          reward,
			ResponseSeconds: seconds,
		}}
		last := index == len(c.session.Questions)-1

		if c.usage.DoubleAnswerActive && c.attempt.Second == nil {
			// First double-answer pick hit: fixed reveal delay before the
			// confirmation lands, no second pick required.
			c.transitioning = true
			c.scheduleLocked(c.rules.RevealDelay, func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				if c.closed || c.session == nil {
					return
				}
				c.transitioning = false
				c.emitLocked(result)
				if last {
					c.finishLocked()
				}
			})
			return
		}

		c.emitLocked(result)
		if last {
			c.finishLocked()
		}
		return
	}

	c.lastCorrect = false
	c.emitLocked(Event{Type: EventAnswerResult, Payload: AnswerResultView{
		Index:           index,
		Selected:        key,
		Correct:         false,
		CorrectKey:      question.CorrectKey(),
		ResponseSeconds: seconds,
		TimedOut:        timedOut,
	}})

	cost := c.rules.ContinueWrongCost
	if timedOut {
		cost = c.rules.ContinueTimeoutCost
	}
	last := index == len(c.session.Questions)-1
	c.transitioning = true
	c.scheduleLocked(c.rules.PromptDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.session == nil || c.session.State != domain.StatePlaying {
			return
		}
		c.transitioning = false
		if last {
			// No question to continue into; the run ends here.
			c.finishLocked()
			return
		}
		c.session.State = domain.StateAwaitingContinue
		c.pendingContinueCost = cost
		c.pendingContinueTimeout = timedOut
		c.emitLocked(Event{Type: EventContinuePrompt, Payload: ContinuePromptView{Cost: cost, TimedOut: timedOut}})
	})
}

// handleTimeout converts countdown expiry into a synthetic wrong selection.
func (c *Controller) handleTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session == nil || c.session.State != domain.StatePlaying {
		return
	}
	if c.resolver == nil || c.resolver.state == resolveDone {
		return
	}
	c.timedOut = true
	c.selectLocked(domain.KeyTimeout)
}

// Continue spends coins to keep playing after a wrong answer or timeout. On
// insufficient funds a rescue offer is surfaced and the state is unchanged.
func (c *Controller) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil || c.session.State != domain.StateAwaitingContinue {
		c.mu.Unlock()
		return domain.ErrNotAwaitingContinue
	}
	cost := c.pendingContinueCost
	timedOut := c.pendingContinueTimeout
	c.mu.Unlock()

	if _, err := c.backends.Wallet.Debit(ctx, c.userID, cost); err != nil {
		if errors.Is(err, domain.ErrInsufficientCoins) {
			c.emit(Event{Type: EventRescueOffer, Payload: ContinuePromptView{Cost: cost, TimedOut: timedOut}})
			c.emit(Event{Type: EventNotice, Payload: NoticeView{Message: "not enough coins to continue"}})
			return err
		}
		c.emit(Event{Type: EventNotice, Payload: NoticeView{Message: "continue failed, try again"}})
		return err
	}
	c.broadcastWalletDetached()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.State != domain.StateAwaitingContinue {
		return domain.ErrNotAwaitingContinue
	}
	c.session.State = domain.StatePlaying
	c.advanceLocked()
	return nil
}

// ActivateLifeline dispatches a lifeline press. Activations past a cap return
// a sentinel error and change nothing.
func (c *Controller) ActivateLifeline(ctx context.Context, kind domain.LifelineKind) error {
	switch kind {
	case domain.LifelineFiftyFifty:
		return c.activateFiftyFifty()
	case domain.LifelineDoubleAnswer:
		return c.activateDoubleAnswer()
	case domain.LifelineAudience:
		return c.activateAudience()
	case domain.LifelineSkip:
		return c.activateSkip(ctx)
	default:
		return domain.ErrSessionNotActive
	}
}

func (c *Controller) activateFiftyFifty() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.lifelineGateLocked(); err != nil {
		return err
	}
	c.rndMu.Lock()
	removed, err := resolveFiftyFifty(c.currentQuestionLocked(), &c.usage, c.rules.LifelineCap, c.rnd)
	c.rndMu.Unlock()
	if err != nil {
		return err
	}
	c.attempt.RemovedKey = removed
	c.emitLocked(Event{Type: EventFiftyFifty, Payload: FiftyFiftyView{Removed: removed}})
	return nil
}

func (c *Controller) activateDoubleAnswer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.lifelineGateLocked(); err != nil {
		return err
	}
	if err := armDoubleAnswer(&c.usage, c.rules.LifelineCap); err != nil {
		return err
	}
	c.resolver.armDouble()
	c.emitLocked(Event{Type: EventLifeline, Payload: LifelineView{Kind: domain.LifelineDoubleAnswer}})
	return nil
}

func (c *Controller) activateAudience() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.lifelineGateLocked(); err != nil {
		return err
	}
	c.rndMu.Lock()
	vote, err := resolveAudience(c.currentQuestionLocked(), &c.usage, c.rules.LifelineCap, c.votes, c.rnd)
	c.rndMu.Unlock()
	if err != nil {
		return err
	}
	c.emitLocked(Event{Type: EventAudienceVote, Payload: vote})
	return nil
}

// activateSkip debits the tiered cost and swaps the current question for an
// unseen one from the pool, re-entering the question-start sequence without
// counting as answered.
func (c *Controller) activateSkip(ctx context.Context) error {
	c.mu.Lock()
	if err := c.lifelineGateLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.usage.SkipUsed {
		c.mu.Unlock()
		return domain.ErrLifelineExhausted
	}
	if len(c.spares) == 0 {
		c.mu.Unlock()
		return domain.ErrPoolExhausted
	}
	index := c.session.CurrentIndex
	c.mu.Unlock()

	coins, _, err := c.backends.Wallet.Balance(ctx, c.userID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	cost, err := authorizeSkip(&c.usage, index, coins)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCoins) {
			c.emitLocked(Event{Type: EventNotice, Payload: NoticeView{Message: "not enough coins to skip"}})
		}
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if _, err := c.backends.Wallet.Debit(ctx, c.userID, cost); err != nil {
		if errors.Is(err, domain.ErrInsufficientCoins) {
			c.emit(Event{Type: EventNotice, Payload: NoticeView{Message: "not enough coins to skip"}})
		}
		return err
	}
	c.broadcastWalletDetached()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.State != domain.StatePlaying {
		return domain.ErrSessionNotActive
	}
	next := c.spares[0]
	c.spares = c.spares[1:]
	c.rndMu.Lock()
	shuffled := shuffleAnswers(next, c.rnd)
	c.rndMu.Unlock()

	c.session.Questions[c.session.CurrentIndex] = shuffled
	c.usage.ClearActive()
	c.usage.SkipUsed = true
	c.usage.SkipActive = true
	c.attempt.Clear()
	c.resolver = newAnswerResolver(shuffled, &c.attempt)
	c.timedOut = false
	c.lastCorrect = false
	c.questionShownAt = c.now()
	c.timer.Reset(c.rules.QuestionTime)
	c.emitLocked(Event{Type: EventLifeline, Payload: LifelineView{Kind: domain.LifelineSkip, Cost: cost}})
	c.emitLocked(Event{Type: EventQuestion, Payload: c.questionViewLocked()})
	return nil
}

// lifelineGateLocked rejects lifeline presses outside active play or once an
// answer is locked in.
func (c *Controller) lifelineGateLocked() error {
	if c.session == nil || c.session.State != domain.StatePlaying || c.transitioning {
		return domain.ErrSessionNotActive
	}
	if c.resolver.selected() {
		return domain.ErrAlreadySelected
	}
	return nil
}

// HandleDrag feeds a raw vertical drag delta and returns the damped offset
// for visual follow.
func (c *Controller) HandleDrag(dy float64) float64 {
	return c.gestures.Drag(dy)
}

// HandleRelease commits the gesture and routes the intent: up advances (or
// triggers the continue purchase when the prompt is visible), down restarts
// from a terminal state or asks for exit confirmation mid-game.
func (c *Controller) HandleRelease(ctx context.Context) {
	switch c.gestures.Release() {
	case IntentAdvance:
		c.mu.Lock()
		if c.session != nil && c.session.State == domain.StateAwaitingContinue {
			c.mu.Unlock()
			_ = c.Continue(ctx)
			return
		}
		c.advanceIfResolvedLocked()
		c.mu.Unlock()

	case IntentAbandon:
		c.mu.Lock()
		state := domain.StateIdle
		if c.session != nil {
			state = c.session.State
		}
		if state == domain.StatePlaying {
			c.dialogOpen = true
			c.emitLocked(Event{Type: EventExitPrompt})
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		if state == domain.StateFinished || state == domain.StateAwaitingContinue {
			if err := c.Restart(ctx); err != nil {
				log.Printf("restart failed: %v", err)
			}
		}
	}
}

func (c *Controller) gestureBlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogOpen || c.transitioning
}

// SetDialogOpen mirrors the client's exit-confirmation dialog; gestures are
// disabled while it is open.
func (c *Controller) SetDialogOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialogOpen = open
}

// advanceIfResolvedLocked moves to the next question after a correct,
// non-final resolution.
func (c *Controller) advanceIfResolvedLocked() {
	if c.session == nil || c.session.State != domain.StatePlaying || c.transitioning {
		return
	}
	if c.resolver == nil || c.resolver.state != resolveDone || !c.lastCorrect {
		return
	}
	if c.session.CurrentIndex >= len(c.session.Questions)-1 {
		return // final correct answer already finished the game
	}
	c.advanceLocked()
}

// advanceLocked loads the next question: index advances, attempt and active
// lifeline flags reset, timer re-armed.
func (c *Controller) advanceLocked() {
	c.session.CurrentIndex++
	c.usage.ClearActive()
	c.attempt.Clear()
	c.resolver = newAnswerResolver(c.session.Questions[c.session.CurrentIndex], &c.attempt)
	c.lastCorrect = false
	c.timedOut = false
	c.questionShownAt = c.now()
	c.timer.Reset(c.rules.QuestionTime)
	c.emitLocked(Event{Type: EventQuestion, Payload: c.questionViewLocked()})
}

// finishLocked computes the final statistics and reports them without
// blocking navigation.
func (c *Controller) finishLocked() {
	c.timer.Cancel()
	c.session.State = domain.StateFinished

	summary := domain.CompletionSummary{
		SessionInstanceID:  c.session.InstanceID,
		CorrectCount:       c.session.CorrectCount,
		CoinsEarned:        c.session.CoinsEarned,
		AvgResponseSeconds: average(c.session.ResponseTimes),
	}
	c.emitLocked(Event{Type: EventFinished, Payload: summary})

	go func() {
		total, err := c.backends.Reporter.ReportCompletion(context.Background(), c.userID, summary)
		if err != nil {
			log.Printf("completion report failed (session=%s): %v", summary.SessionInstanceID, err)
			return
		}
		c.emit(Event{Type: EventWallet, Payload: WalletView{Coins: total}})
	}()
}

// Abandon tears the session down. In-flight detached calls keep running; their
// results are no longer observed.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer.Cancel()
	if c.cancelDelay != nil {
		c.cancelDelay()
		c.cancelDelay = nil
	}
	c.session = nil
	c.resolver = nil
	c.dialogOpen = false
	c.transitioning = false
	c.emitLocked(Event{Type: EventAbandoned})
}

// Close releases the controller on disconnect. Safe to call once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.timer.Cancel()
	if c.cancelDelay != nil {
		c.cancelDelay()
		c.cancelDelay = nil
	}
	c.closed = true
	close(c.events)
}

func (c *Controller) currentQuestionLocked() domain.Question {
	return c.session.Questions[c.session.CurrentIndex]
}

func (c *Controller) currentInstanceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.InstanceID
}

func (c *Controller) questionViewLocked() QuestionView {
	q := c.currentQuestionLocked()
	answers := make([]AnswerOption, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, AnswerOption{Key: a.Key, Text: a.Text})
	}
	return QuestionView{
		SessionInstanceID: c.session.InstanceID,
		Index:             c.session.CurrentIndex,
		Total:             len(c.session.Questions),
		Text:              q.Text,
		Answers:           answers,
		Seconds:           c.rules.QuestionTime.Seconds(),
		Removed:           c.attempt.RemovedKey,
	}
}

func (c *Controller) scheduleLocked(d time.Duration, fn func()) {
	c.cancelDelay = c.delay(d, fn)
}

// creditDetached issues a reward credit without blocking gameplay. Failures
// are logged and swallowed; the idempotent backend makes retries safe and the
// wallet reconciles on next refresh.
func (c *Controller) creditDetached(sourceID string, amount int) {
	go func() {
		if err := c.backends.Ledger.Credit(context.Background(), c.userID, sourceID, amount); err != nil {
			log.Printf("reward credit failed (source=%s): %v", sourceID, err)
		}
	}()
}

// broadcastWalletDetached refreshes balances for other open views. Best
// effort only.
func (c *Controller) broadcastWalletDetached() {
	go func() {
		ctx := context.Background()
		coins, lives, err := c.backends.Wallet.Balance(ctx, c.userID)
		if err != nil {
			log.Printf("wallet refresh failed: %v", err)
			return
		}
		if err := c.backends.Broadcast.PublishWallet(ctx, c.userID, coins, lives); err != nil {
			log.Printf("wallet broadcast failed: %v", err)
		}
		c.emit(Event{Type: EventWallet, Payload: WalletView{Coins: coins, Lives: lives}})
	}()
}

func (c *Controller) prefetchNextDetached() {
	go func() {
		if err := c.prefetch.Populate(context.Background(), c.fetchPrepared); err != nil {
			log.Printf("prefetch failed: %v", err)
		}
	}()
}

func (c *Controller) emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(e)
}

// emitLocked pushes an event without ever blocking the engine; when the
// buffer is full the oldest event is dropped in favor of the newest.
func (c *Controller) emitLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- e:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- e:
		default:
		}
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
