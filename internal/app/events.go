package app

import "quiz-session-service/internal/domain"

// Event is a state change pushed to the connected client. Payloads are
// render-ready views; correct flags are never leaked before resolution.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventStarted        = "started"
	EventQuestion       = "question"
	EventFirstAttempt   = "firstAttempt"
	EventAnswerResult   = "answerResult"
	EventContinuePrompt = "continuePrompt"
	EventRescueOffer    = "rescueOffer"
	EventFiftyFifty     = "fiftyFifty"
	EventAudienceVote   = "audienceVote"
	EventLifeline       = "lifeline"
	EventFinished       = "finished"
	EventOutOfLives     = "outOfLives"
	EventWallet         = "wallet"
	EventNotice         = "notice"
	EventExitPrompt     = "exitPrompt"
	EventAbandoned      = "abandoned"
)

// AnswerOption is one answer slot as rendered to the player.
type AnswerOption struct {
	Key  domain.AnswerKey `json:"key"`
	Text string           `json:"text"`
}

// QuestionView renders the current question without its correct flag.
type QuestionView struct {
	SessionInstanceID string           `json:"sessionInstanceId"`
	Index             int              `json:"index"`
	Total             int              `json:"total"`
	Text              string           `json:"text"`
	Answers           []AnswerOption   `json:"answers"`
	Seconds           float64          `json:"seconds"`
	Removed           domain.AnswerKey `json:"removed,omitempty"`
}

// AnswerResultView reveals the resolution of the current question.
type AnswerResultView struct {
	Index           int              `json:"index"`
	Selected        domain.AnswerKey `json:"selected"`
	Correct         bool             `json:"correct"`
	CorrectKey      domain.AnswerKey `json:"correctKey"`
	Reward          int              `json:"reward"`
	ResponseSeconds float64          `json:"responseSeconds"`
	TimedOut        bool             `json:"timedOut"`
}

// FirstAttemptView reports a missed first pick in double-answer mode.
type FirstAttemptView struct {
	Index int              `json:"index"`
	Key   domain.AnswerKey `json:"key"`
}

// ContinuePromptView offers paid continuation after a wrong answer or timeout.
type ContinuePromptView struct {
	Cost     int  `json:"cost"`
	TimedOut bool `json:"timedOut"`
}

// LifelineView acknowledges a lifeline activation.
type LifelineView struct {
	Kind domain.LifelineKind `json:"kind"`
	Cost int                 `json:"cost,omitempty"`
}

// FiftyFiftyView names the incorrect key removed from display.
type FiftyFiftyView struct {
	Removed domain.AnswerKey `json:"removed"`
}

// WalletView mirrors the backend balances.
type WalletView struct {
	Coins int `json:"coins"`
	Lives int `json:"lives"`
}

// NoticeView is an inline, recoverable user-facing message.
type NoticeView struct {
	Message string `json:"message"`
}
