package app

// GestureIntent is the committed meaning of a released swipe.
type GestureIntent int

const (
	IntentNone GestureIntent = iota
	IntentAdvance
	IntentAbandon
)

// GestureNavigator turns vertical drag deltas into advance/abandon intents.
// While dragging, the visual offset follows the finger scaled by a damping
// factor; an intent commits only when the release passes the threshold.
// Recognition is gated by a caller-supplied blocked func (exit dialog open,
// transition animation in flight).
type GestureNavigator struct {
	threshold float64
	damping   float64
	blocked   func() bool

	delta float64 // raw accumulated drag, negative = up
}

func NewGestureNavigator(threshold, damping float64, blocked func() bool) *GestureNavigator {
	if blocked == nil {
		blocked = func() bool { return false }
	}
	return &GestureNavigator{threshold: threshold, damping: damping, blocked: blocked}
}

// Drag accumulates a vertical delta and returns the damped visual offset.
// Returns 0 while recognition is blocked.
func (g *GestureNavigator) Drag(dy float64) float64 {
	if g.blocked() {
		g.delta = 0
		return 0
	}
	g.delta += dy
	return g.delta * g.damping
}

// Release commits the gesture: swipe up past the threshold advances, swipe
// down abandons or restarts. The accumulated drag resets either way.
func (g *GestureNavigator) Release() GestureIntent {
	delta := g.delta
	g.delta = 0
	if g.blocked() {
		return IntentNone
	}
	switch {
	case delta <= -g.threshold:
		return IntentAdvance
	case delta >= g.threshold:
		return IntentAbandon
	default:
		return IntentNone
	}
}
