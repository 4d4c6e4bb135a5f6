package menu

import "fmt"

// Kind enumerates the inbound interactions the router understands.
type Kind int

const (
	// KindUnrecognized is the zero value so an unset Action never navigates.
	KindUnrecognized Kind = iota
	KindStart
	KindNavigate
	KindBack
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindNavigate:
		return "navigate"
	case KindBack:
		return "back"
	default:
		return "unrecognized"
	}
}

// MessageRef identifies a previously rendered message. The zero value means
// there is no message to edit and no chat to send to.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference points to no message.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Editable reports whether the reference names an existing message. A ref
// carrying only ChatID asks for a fresh message in that chat.
func (r MessageRef) Editable() bool {
	return r.ChatID != 0 && r.MessageID != 0
}

// Action is a normalized inbound event.
type Action struct {
	Kind Kind
	// ID is the target view of KindNavigate actions.
	ID string
	// Raw keeps the undecodable payload of KindUnrecognized actions for logs.
	Raw        string
	MessageRef MessageRef
}

// Start opens the main menu.
func Start() Action { return Action{Kind: KindStart} }

// Navigate opens the view with the given identifier.
func Navigate(id string) Action { return Action{Kind: KindNavigate, ID: id} }

// Back returns to the main menu.
func Back() Action { return Action{Kind: KindBack} }

// Unrecognized wraps a payload that could not be decoded.
func Unrecognized(raw string) Action { return Action{Kind: KindUnrecognized, Raw: raw} }

// WithMessage returns a copy of a bound to the message it should edit.
func (a Action) WithMessage(ref MessageRef) Action {
	a.MessageRef = ref
	return a
}

func (a Action) String() string {
	switch a.Kind {
	case KindNavigate:
		return fmt.Sprintf("navigate(%s)", a.ID)
	case KindUnrecognized:
		if a.Raw != "" {
			return fmt.Sprintf("unrecognized(%s)", a.Raw)
		}
	}
	return a.Kind.String()
}
