package model

// Role tags a conversation turn for prompt construction.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged utterance in a conversation history.
// Turns are immutable once created.
type Turn struct {
	Role Role              `json:"role"`
	Text string            `json:"text"`
	Data map[string]string `json:"data,omitempty"`
}

// History is an ordered sequence of turns. Insertion order is significant:
// prompt construction depends on it.
type History []Turn

func SystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}

func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// Clone returns an independent copy of the history. The backing turns are
// value types, so a shallow copy is sufficient.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}
