package event

import (
	"github.com/home-hub/home-hub/internal/domain/agent"
)

// Type identifies a push channel message kind.
type Type string

const (
	TypeConnected    Type = "connected"
	TypeAgentUpdate  Type = "agent_update"
	TypeNotification Type = "notification"
	TypePong         Type = "pong"
)

// Message is a single push channel frame. Fields not applicable to a
// message kind are omitted from the wire encoding.
type Message struct {
	Type    Type         `json:"type"`
	Message string       `json:"message,omitempty"`
	Title   string       `json:"title,omitempty"`
	Agent   *agent.Agent `json:"agent,omitempty"`
}

// NewConnected is the greeting sent once after subscribe.
func NewConnected(greeting string) Message {
	return Message{Type: TypeConnected, Message: greeting}
}

// NewAgentUpdate carries a decoupled snapshot of an agent record.
func NewAgentUpdate(a *agent.Agent) Message {
	return Message{Type: TypeAgentUpdate, Agent: a}
}

// NewNotification carries a user-facing notification.
func NewNotification(title, message string) Message {
	return Message{Type: TypeNotification, Title: title, Message: message}
}

// NewPong answers a client ping.
func NewPong() Message {
	return Message{Type: TypePong}
}

// Publisher is the outbound side of the event hub. Publish must never block
// on a slow observer.
type Publisher interface {
	Publish(msg Message)
}
