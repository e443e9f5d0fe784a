package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// manualDelay queues reveal/prompt callbacks so tests control when the fixed
// delays elapse.
type manualDelay struct {
	mu      sync.Mutex
	pending []func()
}

func (d *manualDelay) Delay(_ time.Duration, fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, fn)
	return func() {}
}

func (d *manualDelay) Fire() {
	d.mu.Lock()
	fns := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type testEnv struct {
	controller *Controller
	wallet     *memory.Wallet
	ledger     *memory.RewardLedger
	reporter   *memory.Reporter
	delay      *manualDelay
}

// newTestEnv wires a controller against in-memory backends. The ledger is
// deliberately not linked to the wallet so balance assertions stay
// deterministic while detached credits land.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pool := make([]domain.Question, 25)
	for i := range pool {
		pool[i] = poolQuestion(i)
	}
	wallet := memory.NewWallet(100, 3)
	ledger := memory.NewRewardLedger(nil)
	reporter := memory.NewReporter(wallet)
	delay := &manualDelay{}

	source := memory.NewQuestionSourceWithRand(pool, rand.New(rand.NewSource(11)))
	controller := NewControllerWithClock("u1", Backends{
		Source:    source,
		Wallet:    wallet,
		Ledger:    ledger,
		Reporter:  reporter,
		Broadcast: memory.NewBroadcaster(),
	}, Rules{}, nil, nil, time.Now, rand.New(rand.NewSource(42)), delay.Delay)

	return &testEnv{controller: controller, wallet: wallet, ledger: ledger, reporter: reporter, delay: delay}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// nextEvent reads events until one of the wanted type arrives.
func nextEvent(t *testing.T, c *Controller, want string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("event stream closed while waiting for %q", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

func drainEvents(c *Controller) {
	for {
		select {
		case <-c.Events():
		default:
			return
		}
	}
}

func answerCorrect(t *testing.T, env *testEnv) {
	t.Helper()
	snap := env.controller.Snapshot()
	env.controller.SelectAnswer(snap.Questions[snap.CurrentIndex].CorrectKey())
}

func swipeUp(t *testing.T, env *testEnv) {
	t.Helper()
	env.controller.HandleDrag(-120)
	env.controller.HandleRelease(context.Background())
}

func TestHappyPathFifteenCorrect(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 15; i++ {
		answerCorrect(t, env)
		if i < 14 {
			swipeUp(t, env)
		}
		drainEvents(c)
	}

	snap := c.Snapshot()
	if snap.State != domain.StateFinished {
		t.Fatalf("expected finished, got %s", snap.State)
	}
	if snap.CorrectCount != 15 {
		t.Fatalf("expected 15 correct, got %d", snap.CorrectCount)
	}
	if len(snap.ResponseTimes) != 15 {
		t.Fatalf("expected 15 response times, got %d", len(snap.ResponseTimes))
	}

	// start bonus + 5x5 + 5x10 + 5x15
	wantCoins := 20 + 25 + 50 + 75
	if snap.CoinsEarned != wantCoins {
		t.Fatalf("expected coinsEarned=%d, got %d", wantCoins, snap.CoinsEarned)
	}
	waitFor(t, func() bool { return env.ledger.TotalCredited() == wantCoins },
		"all rewards credited")
	waitFor(t, func() bool { return len(env.reporter.Summaries()) == 1 },
		"completion reported")
}

func TestRewardCreditedOncePerQuestionDespiteDuplicateTaps(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	snap := c.Snapshot()
	key := snap.Questions[0].CorrectKey()
	c.SelectAnswer(key)
	c.SelectAnswer(key) // duplicate UI event, dropped
	c.SelectAnswer(key)

	sourceID := domain.RewardSourceID(snap.InstanceID, 0)
	waitFor(t, func() bool { return env.ledger.Attempts(sourceID) == 1 },
		"single credit attempt")
	if got := env.ledger.CreditedAmount(sourceID); got != 5 {
		t.Fatalf("expected one credit of 5, got %d", got)
	}
}

func TestStartSpendsLifeAndCreditsStartBonusOnce(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	_, lives, _ := env.wallet.Balance(context.Background(), "u1")
	if lives != 2 {
		t.Fatalf("expected one life spent, got %d lives", lives)
	}

	sourceID := domain.StartRewardSourceID(c.Snapshot().InstanceID)
	waitFor(t, func() bool { return env.ledger.CreditedAmount(sourceID) == 20 },
		"start bonus credited")
}

func TestStartOutOfLives(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	env.wallet.SetBalance("u1", 100, 0)
	if err := c.Start(context.Background()); !errors.Is(err, domain.ErrNoLives) {
		t.Fatalf("expected ErrNoLives, got %v", err)
	}
	if c.State() != domain.StateOutOfLives {
		t.Fatalf("expected OutOfLives state, got %s", c.State())
	}
	nextEvent(t, c, EventOutOfLives)
}

// slowSource holds the fetch until released so the test can observe the
// Starting window.
type slowSource struct {
	inner   QuestionSource
	release chan struct{}
}

func (s *slowSource) FetchQuestionSet(ctx context.Context, n int) ([]domain.Question, error) {
	<-s.release
	return s.inner.FetchQuestionSet(ctx, n)
}

func TestNoPrematureRenderAndDuplicateStartRejected(t *testing.T) {
	env := newTestEnv(t)
	defer env.controller.Close()

	pool := make([]domain.Question, 25)
	for i := range pool {
		pool[i] = poolQuestion(i)
	}
	source := &slowSource{
		inner:   memory.NewQuestionSourceWithRand(pool, rand.New(rand.NewSource(5))),
		release: make(chan struct{}),
	}
	c := NewControllerWithClock("u1", Backends{
		Source:    source,
		Wallet:    env.wallet,
		Ledger:    env.ledger,
		Reporter:  env.reporter,
		Broadcast: memory.NewBroadcaster(),
	}, Rules{}, nil, nil, time.Now, rand.New(rand.NewSource(42)), env.delay.Delay)
	defer c.Close()

	errs := make(chan error, 1)
	go func() { errs <- c.Start(context.Background()) }()

	waitFor(t, func() bool { return c.State() == domain.StateStarting }, "starting state")

	select {
	case ev := <-c.Events():
		t.Fatalf("expected no render before fetch completes, got %q", ev.Type)
	default:
	}

	if err := c.Start(context.Background()); !errors.Is(err, domain.ErrStartInFlight) {
		t.Fatalf("expected duplicate start rejection, got %v", err)
	}

	close(source.release)
	if err := <-errs; err != nil {
		t.Fatalf("start failed: %v", err)
	}

	nextEvent(t, c, EventStarted)
	q := nextEvent(t, c, EventQuestion)
	view := q.Payload.(QuestionView)
	if view.Index != 0 || len(view.Answers) != 3 || view.Seconds != 10 {
		t.Fatalf("unexpected first question view: %+v", view)
	}
}

func TestTimeoutThenRescue(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	env.wallet.SetBalance("u1", 10, 3) // cannot afford the timeout tier
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	drainEvents(c)

	c.handleTimeout()
	result := nextEvent(t, c, EventAnswerResult).Payload.(AnswerResultView)
	if result.Correct || !result.TimedOut {
		t.Fatalf("expected timed-out wrong result, got %+v", result)
	}

	env.delay.Fire() // continue-prompt delay elapses
	prompt := nextEvent(t, c, EventContinuePrompt).Payload.(ContinuePromptView)
	if prompt.Cost != 40 || !prompt.TimedOut {
		t.Fatalf("expected timeout-tier prompt cost 40, got %+v", prompt)
	}

	if err := c.Continue(context.Background()); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	nextEvent(t, c, EventRescueOffer)
	if c.State() != domain.StateAwaitingContinue {
		t.Fatalf("expected state unchanged after failed continue, got %s", c.State())
	}

	env.wallet.CreditCoins("u1", 100) // simulated purchase
	if err := c.Continue(context.Background()); err != nil {
		t.Fatalf("continue failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != domain.StatePlaying || snap.CurrentIndex != 1 {
		t.Fatalf("expected play resumed at next question, got state=%s index=%d", snap.State, snap.CurrentIndex)
	}
	if snap.CorrectCount != 0 || len(snap.ResponseTimes) != 1 {
		t.Fatalf("expected counters otherwise unchanged, got %+v", snap)
	}
}

func TestWrongTapUsesLowerContinueTier(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	snap := c.Snapshot()
	correct := snap.Questions[0].CorrectKey()
	for _, k := range domain.Keys {
		if k != correct {
			c.SelectAnswer(k)
			break
		}
	}

	env.delay.Fire()
	prompt := nextEvent(t, c, EventContinuePrompt).Payload.(ContinuePromptView)
	if prompt.Cost != 20 || prompt.TimedOut {
		t.Fatalf("expected wrong-tap tier cost 20, got %+v", prompt)
	}
}

func TestWrongAnswerOnFinalQuestionFinishesSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 14; i++ {
		answerCorrect(t, env)
		swipeUp(t, env)
		drainEvents(c)
	}

	snap := c.Snapshot()
	correct := snap.Questions[14].CorrectKey()
	for _, k := range domain.Keys {
		if k != correct {
			c.SelectAnswer(k)
			break
		}
	}
	result := nextEvent(t, c, EventAnswerResult).Payload.(AnswerResultView)
	if result.Correct {
		t.Fatalf("expected wrong final answer, got %+v", result)
	}

	env.delay.Fire()
	summary := nextEvent(t, c, EventFinished).Payload.(domain.CompletionSummary)
	if summary.CorrectCount != 14 {
		t.Fatalf("expected 14 correct in summary, got %+v", summary)
	}
	if c.State() != domain.StateFinished {
		t.Fatalf("expected finished after wrong final answer, got %s", c.State())
	}

	// No question remains to continue into, so no prompt and no paid resume.
	if err := c.Continue(context.Background()); !errors.Is(err, domain.ErrNotAwaitingContinue) {
		t.Fatalf("expected continue rejection after the final question, got %v", err)
	}
	if got := c.Snapshot().CurrentIndex; got != 14 {
		t.Fatalf("expected index to stay at the final question, got %d", got)
	}
}

func TestTimeoutOnFinalQuestionFinishesSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 14; i++ {
		answerCorrect(t, env)
		swipeUp(t, env)
		drainEvents(c)
	}

	c.handleTimeout()
	env.delay.Fire()
	if c.State() != domain.StateFinished {
		t.Fatalf("expected finished after final timeout, got %s", c.State())
	}
	if err := c.Continue(context.Background()); !errors.Is(err, domain.ErrNotAwaitingContinue) {
		t.Fatalf("expected continue rejection, got %v", err)
	}
}

func TestRestartFromPrefetchIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	firstInstance := c.Snapshot().InstanceID

	for i := 0; i < 15; i++ {
		answerCorrect(t, env)
		if i < 14 {
			swipeUp(t, env)
		}
		drainEvents(c)
	}
	if c.State() != domain.StateFinished {
		t.Fatalf("expected finished before restart, got %s", c.State())
	}

	waitFor(t, func() bool { return c.PrefetchState() == PrefetchReady }, "prefetch ready")

	if err := c.Restart(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != domain.StatePlaying {
		t.Fatalf("expected playing after restart, got %s", snap.State)
	}
	if snap.CurrentIndex != 0 || len(snap.Questions) != 15 {
		t.Fatalf("expected fresh 15-question session at index 0, got index=%d len=%d", snap.CurrentIndex, len(snap.Questions))
	}
	if snap.CorrectCount != 0 || len(snap.ResponseTimes) != 0 || snap.InstanceID == firstInstance {
		t.Fatalf("expected all counters reset under a new instance, got %+v", snap)
	}
	if attempt := c.Attempt(); attempt != (domain.AnswerAttempt{}) {
		t.Fatalf("expected empty attempt state, got %+v", attempt)
	}

	_, lives, _ := env.wallet.Balance(context.Background(), "u1")
	if lives != 1 {
		t.Fatalf("expected a second life spent on restart, got %d", lives)
	}
}

// flakyWallet fails life spends on demand to exercise backend outages.
type flakyWallet struct {
	*memory.Wallet
	mu       sync.Mutex
	spendErr error
}

func (w *flakyWallet) failSpends(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spendErr = err
}

func (w *flakyWallet) SpendLife(ctx context.Context, userID string) (int, error) {
	w.mu.Lock()
	err := w.spendErr
	w.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return w.Wallet.SpendLife(ctx, userID)
}

func TestRestartSpendFailureTearsSessionDown(t *testing.T) {
	env := newTestEnv(t)
	defer env.controller.Close()

	pool := make([]domain.Question, 25)
	for i := range pool {
		pool[i] = poolQuestion(i)
	}
	wallet := &flakyWallet{Wallet: memory.NewWallet(100, 5)}
	c := NewControllerWithClock("u1", Backends{
		Source:    memory.NewQuestionSourceWithRand(pool, rand.New(rand.NewSource(5))),
		Wallet:    wallet,
		Ledger:    env.ledger,
		Reporter:  memory.NewReporter(wallet.Wallet),
		Broadcast: memory.NewBroadcaster(),
	}, Rules{}, nil, nil, time.Now, rand.New(rand.NewSource(42)), env.delay.Delay)
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for i := 0; i < 15; i++ {
		snap := c.Snapshot()
		c.SelectAnswer(snap.Questions[snap.CurrentIndex].CorrectKey())
		if i < 14 {
			c.HandleDrag(-120)
			c.HandleRelease(context.Background())
		}
		drainEvents(c)
	}
	waitFor(t, func() bool { return c.PrefetchState() == PrefetchReady }, "prefetch ready")

	wallet.failSpends(errors.New("wallet unavailable"))
	err := c.Restart(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoLives) {
		t.Fatalf("expected generic spend failure, got %v", err)
	}

	// The half-announced session must not stay live without its bookkeeping.
	nextEvent(t, c, EventAbandoned)
	if c.State() != domain.StateIdle {
		t.Fatalf("expected teardown to idle, got %s", c.State())
	}

	wallet.failSpends(nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start after recovery failed: %v", err)
	}
	if c.State() != domain.StatePlaying {
		t.Fatalf("expected fresh playing session, got %s", c.State())
	}
}

func TestSwipeDownRestartsFromContinuePrompt(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitFor(t, func() bool { return c.PrefetchState() == PrefetchReady }, "prefetch ready")
	firstInstance := c.Snapshot().InstanceID

	c.handleTimeout()
	env.delay.Fire()
	waitFor(t, func() bool { return c.State() == domain.StateAwaitingContinue }, "continue prompt")

	c.HandleDrag(150)
	c.HandleRelease(context.Background())

	waitFor(t, func() bool {
		snap := c.Snapshot()
		return snap.State == domain.StatePlaying && snap.InstanceID != firstInstance
	}, "abandon-and-restart")
	if idx := c.Snapshot().CurrentIndex; idx != 0 {
		t.Fatalf("expected restart at question 0, got %d", idx)
	}
}

func TestSkipSwapsQuestionAndDebitsTier(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	before := c.Snapshot()

	if err := c.ActivateLifeline(context.Background(), domain.LifelineSkip); err != nil {
		t.Fatalf("skip failed: %v", err)
	}

	after := c.Snapshot()
	if after.CurrentIndex != 0 {
		t.Fatalf("skip must not count as an answered question, index=%d", after.CurrentIndex)
	}
	if after.Questions[0].ID == before.Questions[0].ID {
		t.Fatalf("expected a different question after skip")
	}
	coins, _, _ := env.wallet.Balance(context.Background(), "u1")
	if coins != 90 {
		t.Fatalf("expected tier-0 cost 10 debited, balance=%d", coins)
	}

	if err := c.ActivateLifeline(context.Background(), domain.LifelineSkip); !errors.Is(err, domain.ErrLifelineExhausted) {
		t.Fatalf("expected single skip per game, got %v", err)
	}
}

func TestSkipRejectedWhenUnderfunded(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	env.wallet.SetBalance("u1", 5, 3)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := c.ActivateLifeline(context.Background(), domain.LifelineSkip); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	if c.Snapshot().State != domain.StatePlaying {
		t.Fatalf("expected no state change on rejected skip")
	}
}

func TestAudienceCapFourthActivationIsNoop(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := c.ActivateLifeline(context.Background(), domain.LifelineAudience); err != nil {
			t.Fatalf("activation %d failed: %v", i+1, err)
		}
		vote := nextEvent(t, c, EventAudienceVote).Payload.(domain.AudienceVote)
		if len(vote.Percent) != 3 {
			t.Fatalf("expected a three-way distribution, got %+v", vote)
		}
		answerCorrect(t, env)
		swipeUp(t, env)
		drainEvents(c)
	}

	if err := c.ActivateLifeline(context.Background(), domain.LifelineAudience); !errors.Is(err, domain.ErrLifelineExhausted) {
		t.Fatalf("expected cap rejection on 4th activation, got %v", err)
	}
}

func TestFiftyFiftyRemovedKeyTapsAreDropped(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := c.ActivateLifeline(context.Background(), domain.LifelineFiftyFifty); err != nil {
		t.Fatalf("fifty-fifty failed: %v", err)
	}
	removed := nextEvent(t, c, EventFiftyFifty).Payload.(FiftyFiftyView).Removed
	if removed == c.Snapshot().Questions[0].CorrectKey() {
		t.Fatalf("fifty-fifty removed the correct answer")
	}

	c.SelectAnswer(removed)
	if c.Attempt().Selected != nil {
		t.Fatalf("expected tap on removed key to be dropped")
	}

	answerCorrect(t, env)
	if snap := c.Snapshot(); snap.CorrectCount != 1 {
		t.Fatalf("expected correct resolution after drop, got %+v", snap)
	}
}

func TestDoubleAnswerSecondAttemptRescues(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := c.ActivateLifeline(context.Background(), domain.LifelineDoubleAnswer); err != nil {
		t.Fatalf("double-answer failed: %v", err)
	}

	snap := c.Snapshot()
	correct := snap.Questions[0].CorrectKey()
	var wrong domain.AnswerKey
	for _, k := range domain.Keys {
		if k != correct {
			wrong = k
			break
		}
	}

	c.SelectAnswer(wrong)
	first := nextEvent(t, c, EventFirstAttempt).Payload.(FirstAttemptView)
	if first.Key != wrong {
		t.Fatalf("expected first attempt %s, got %+v", wrong, first)
	}

	c.SelectAnswer(correct)
	result := nextEvent(t, c, EventAnswerResult).Payload.(AnswerResultView)
	if !result.Correct {
		t.Fatalf("expected rescue by second attempt, got %+v", result)
	}
}

func TestDoubleAnswerFirstCorrectRevealsAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	drainEvents(c)

	if err := c.ActivateLifeline(context.Background(), domain.LifelineDoubleAnswer); err != nil {
		t.Fatalf("double-answer failed: %v", err)
	}
	answerCorrect(t, env)

	select {
	case ev := <-c.Events():
		if ev.Type == EventAnswerResult {
			t.Fatalf("expected reveal to wait for the fixed delay")
		}
	default:
	}

	env.delay.Fire()
	result := nextEvent(t, c, EventAnswerResult).Payload.(AnswerResultView)
	if !result.Correct {
		t.Fatalf("expected correct without second attempt, got %+v", result)
	}
}

func TestSwipeUpIgnoredBeforeResolution(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	swipeUp(t, env)
	if idx := c.Snapshot().CurrentIndex; idx != 0 {
		t.Fatalf("expected no advance before a correct answer, got index %d", idx)
	}
}

func TestSwipeDownDuringPlayOpensExitPrompt(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	drainEvents(c)

	c.HandleDrag(150)
	c.HandleRelease(context.Background())
	nextEvent(t, c, EventExitPrompt)

	// Gestures are dead while the dialog is open.
	c.HandleDrag(-150)
	c.HandleRelease(context.Background())
	if idx := c.Snapshot().CurrentIndex; idx != 0 {
		t.Fatalf("expected gestures disabled under dialog, got index %d", idx)
	}

	c.SetDialogOpen(false)
	c.Abandon()
	if c.State() != domain.StateIdle {
		t.Fatalf("expected teardown to idle, got %s", c.State())
	}
}

func TestSnapshotQuestionInvariants(t *testing.T) {
	env := newTestEnv(t)
	c := env.controller
	defer c.Close()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Questions) != 15 {
		t.Fatalf("expected 15 questions, got %d", len(snap.Questions))
	}
	ids := map[string]bool{}
	for _, q := range snap.Questions {
		if ids[q.ID] {
			t.Fatalf("duplicate question %s in session", q.ID)
		}
		ids[q.ID] = true
		correct := 0
		for i, a := range q.Answers {
			if a.Key != domain.Keys[i] {
				t.Fatalf("question %s: key %s at slot %d", q.ID, a.Key, i)
			}
			if a.Correct {
				correct++
			}
		}
		if correct != 1 {
			t.Fatalf("question %s: %d correct answers", q.ID, correct)
		}
	}
}

func TestStateStringsAreStable(t *testing.T) {
	// Wire-visible state names; renames break clients.
	for state, want := range map[domain.SessionState]string{
		domain.StatePlaying:          "playing",
		domain.StateAwaitingContinue: "awaitingContinueDecision",
		domain.StateOutOfLives:       "outOfLives",
	} {
		if string(state) != want {
			t.Fatalf("state %v renamed, want %s", state, want)
		}
	}
	if fmt.Sprintf("%s-q%d", "abc", 3) != domain.RewardSourceID("abc", 3) {
		t.Fatalf("reward source id format changed")
	}
}
