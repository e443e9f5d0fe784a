package domain

import "fmt"

// AnswerKey is the display letter of an answer slot.
type AnswerKey string

const (
	KeyA AnswerKey = "A"
	KeyB AnswerKey = "B"
	KeyC AnswerKey = "C"

	// KeyTimeout is the synthetic selection recorded when the countdown
	// expires. It never matches a real answer, so it funnels through the
	// wrong-answer path without a dedicated branch.
	KeyTimeout AnswerKey = "-"
)

// Keys lists the three display letters in order.
var Keys = [3]AnswerKey{KeyA, KeyB, KeyC}

// Answer is one option of a question after shuffling.
type Answer struct {
	Key     AnswerKey `json:"key"`
	Text    string    `json:"text"`
	Correct bool      `json:"correct"`
}

// Question models an MCQ question with exactly three answers, one correct.
// Immutable once shuffled; owned by the active session.
type Question struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Answers [3]Answer `json:"answers"`
}

// CorrectKey returns the letter of the correct answer.
func (q Question) CorrectKey() AnswerKey {
	for _, a := range q.Answers {
		if a.Correct {
			return a.Key
		}
	}
	return ""
}

// SessionState enumerates the game-level states visible to clients.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateStarting         SessionState = "starting"
	StatePlaying          SessionState = "playing"
	StateAwaitingContinue SessionState = "awaitingContinueDecision"
	StateFinished         SessionState = "finished"
	StateOutOfLives       SessionState = "outOfLives"
)

// Session is one playthrough of the quiz.
type Session struct {
	InstanceID    string
	Questions     []Question
	CurrentIndex  int
	CorrectCount  int
	ResponseTimes []float64 // seconds
	CoinsEarned   int
	State         SessionState
}

// LifelineKind identifies one of the four in-game aids.
type LifelineKind string

const (
	LifelineFiftyFifty   LifelineKind = "fiftyFifty"
	LifelineDoubleAnswer LifelineKind = "doubleAnswer"
	LifelineAudience     LifelineKind = "audience"
	LifelineSkip         LifelineKind = "skip"
)

// LifelineUsage holds the per-game counters and the per-question active
// flags. The active flags are cleared every time the question index advances.
type LifelineUsage struct {
	FiftyFiftyUsed   int
	DoubleAnswerUsed int
	AudienceUsed     int
	SkipUsed         bool

	FiftyFiftyActive   bool
	DoubleAnswerActive bool
	AudienceActive     bool
	SkipActive         bool
}

// ClearActive resets the active-for-this-question flags.
func (u *LifelineUsage) ClearActive() {
	u.FiftyFiftyActive = false
	u.DoubleAnswerActive = false
	u.AudienceActive = false
	u.SkipActive = false
}

// AnswerAttempt is the transient per-question record, cleared on every
// question transition.
type AnswerAttempt struct {
	First      *AnswerKey
	Second     *AnswerKey
	Selected   *AnswerKey
	RemovedKey AnswerKey
}

// Clear resets the attempt for the next question.
func (a *AnswerAttempt) Clear() {
	*a = AnswerAttempt{}
}

// AudienceVote is a synthetic percentage distribution over the three keys.
// Display only; it never affects scoring.
type AudienceVote struct {
	Percent map[AnswerKey]int `json:"percent"`
}

// CompletionSummary carries the final statistics reported to the backend.
type CompletionSummary struct {
	SessionInstanceID  string  `json:"sessionInstanceId"`
	CorrectCount       int     `json:"correctCount"`
	CoinsEarned        int     `json:"coinsEarned"`
	AvgResponseSeconds float64 `json:"avgResponseSeconds"`
}

// RewardSourceID derives the deterministic ledger key for the per-question
// reward. The same logical event must always map to the same id; the ledger
// backend treats duplicates as no-ops.
func RewardSourceID(instanceID string, index int) string {
	return fmt.Sprintf("%s-q%d", instanceID, index)
}

// StartRewardSourceID derives the ledger key for the one-time start bonus.
func StartRewardSourceID(instanceID string) string {
	return instanceID + "-start"
}
