// Package wizard models the three-screen booking flow and its sessions.
package wizard

// Screen is one of the three wizard screens.
type Screen string

const (
	ScreenWelcome      Screen = "welcome"
	ScreenForm         Screen = "form"
	ScreenConfirmation Screen = "confirmation"
)

// FSM guards screen transitions. Exactly four are reachable:
// welcome->form, form->confirmation, form->welcome (back) and
// confirmation->welcome.
type FSM struct {
	transitions map[Screen][]Screen
}

// NewFSM creates the screen sequencer with its fixed transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[Screen][]Screen{
			ScreenWelcome:      {ScreenForm},
			ScreenForm:         {ScreenConfirmation, ScreenWelcome},
			ScreenConfirmation: {ScreenWelcome},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to Screen) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the session to the target screen if allowed and
// resets the form cursor when entering or leaving the form.
func (f *FSM) Transition(s *Session, to Screen) bool {
	if !f.CanTransition(s.Screen, to) {
		return false
	}
	s.Screen = to
	if to == ScreenForm {
		s.Step = StepName
	} else {
		s.Step = StepNone
	}
	return true
}
