// README: Chat transcript message model and validation.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidMessage = errors.New("missing required fields")

// Message is one chat line. Timestamp is unix milliseconds.
type Message struct {
	Sender    Role   `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// normalize validates m and maps the legacy "bot" sender onto RoleAssistant.
func (m Message) normalize() (Message, error) {
	if strings.TrimSpace(m.Text) == "" {
		return Message{}, ErrInvalidMessage
	}
	switch m.Sender {
	case RoleUser, RoleAssistant:
	case "bot":
		m.Sender = RoleAssistant
	case "":
		return Message{}, ErrInvalidMessage
	default:
		return Message{}, fmt.Errorf("%w: unknown sender %q", ErrInvalidMessage, m.Sender)
	}
	return m, nil
}
