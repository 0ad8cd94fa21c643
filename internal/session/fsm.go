package session

import "fmt"

// Phase is the top-level interview state.
type Phase string

// Event drives phase transitions.
type Event string

const (
	PhaseLoading      Phase = "loading"
	PhaseInstructions Phase = "instructions"
	PhaseQuestioning  Phase = "questioning"
	PhaseCompleting   Phase = "completing"
	PhaseDone         Phase = "done"
	PhaseTerminated   Phase = "terminated"
)

const (
	EventLoaded    Event = "loaded"
	EventBegin     Event = "begin"
	EventComplete  Event = "complete"
	EventCompleted Event = "completed"
	EventTerminate Event = "terminate"
)

// Transition is the single authoritative phase transition function.
// terminate is accepted from every non-terminal phase; done and terminated
// accept nothing.
func Transition(current Phase, event Event) (Phase, error) {
	if event == EventTerminate {
		switch current {
		case PhaseDone, PhaseTerminated:
			return current, invalidTransition(current, event)
		default:
			return PhaseTerminated, nil
		}
	}

	switch current {
	case PhaseLoading:
		if event == EventLoaded {
			return PhaseInstructions, nil
		}
	case PhaseInstructions:
		if event == EventBegin {
			return PhaseQuestioning, nil
		}
	case PhaseQuestioning:
		if event == EventComplete {
			return PhaseCompleting, nil
		}
	case PhaseCompleting:
		if event == EventCompleted {
			return PhaseDone, nil
		}
	case PhaseDone, PhaseTerminated:
	default:
		return current, fmt.Errorf("unknown phase %q", current)
	}
	return current, invalidTransition(current, event)
}

func invalidTransition(phase Phase, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", phase, event)
}
