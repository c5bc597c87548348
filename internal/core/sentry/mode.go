package sentry

// Mode is the behavior branch an agent runs on a tick. It is derived from the agent's
// observations every tick and never latched.
type Mode uint8

const (
	ModePatrol Mode = iota
	ModeChase
	ModeEngage
)

func (m Mode) String() string {
	switch m {
	case ModePatrol:
		return "patrol"
	case ModeChase:
		return "chase"
	case ModeEngage:
		return "engage"
	default:
		return "unknown"
	}
}
