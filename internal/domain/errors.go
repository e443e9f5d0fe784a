package domain

import "errors"

var (
	// ErrNoLives is returned when a life-spend attempt fails closed.
	ErrNoLives = errors.New("no lives available")
	// ErrInsufficientCoins is returned when a debit exceeds the balance.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrLifelineExhausted rejects activation past a lifeline's cap.
	ErrLifelineExhausted = errors.New("lifeline exhausted")
	// ErrLifelineActive rejects re-activation on the same question.
	ErrLifelineActive = errors.New("lifeline already active for this question")
	// ErrAlreadySelected marks a stale answer tap; callers drop it silently.
	ErrAlreadySelected = errors.New("answer already selected")
	// ErrStartInFlight rejects a concurrent start or restart request.
	ErrStartInFlight = errors.New("start already in flight")
	// ErrSessionNotActive is returned for play events outside Playing.
	ErrSessionNotActive = errors.New("session not active")
	// ErrNotAwaitingContinue rejects a continue outside the prompt state.
	ErrNotAwaitingContinue = errors.New("no continue decision pending")
	// ErrPoolExhausted indicates the question pool cannot supply the set.
	ErrPoolExhausted = errors.New("question pool exhausted")
	// ErrSecondAttemptSame rejects repeating the first double-answer pick.
	ErrSecondAttemptSame = errors.New("second attempt must differ from first")
)
