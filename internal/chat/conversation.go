// Package chat answers questions about the loaded document using retrieved
// passages and the running conversation.
package chat

import (
	"docchat/internal/domain"
	"docchat/internal/vectorstore"
)

// State of a conversation.
type State int

const (
	// Idle means no index generation is attached; questions cannot be answered.
	Idle State = iota
	// Ready means an index is attached and history accumulates.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "idle"
}

// Conversation is the per-session state: transcript plus the index
// generation questions are answered from.
type Conversation struct {
	history []domain.ChatMessage
	index   *vectorstore.Handle
}

func (c *Conversation) State() State {
	if c.index == nil {
		return Idle
	}
	return Ready
}

// Index returns the attached generation, if any.
func (c *Conversation) Index() (vectorstore.Handle, bool) {
	if c.index == nil {
		return vectorstore.Handle{}, false
	}
	return *c.index, true
}

// Attach switches the conversation to a new generation and starts a fresh history.
func (c *Conversation) Attach(h vectorstore.Handle) {
	c.index = &h
	c.history = nil
}

// Detach drops the index, returning to Idle. History is kept.
func (c *Conversation) Detach() { c.index = nil }

// Clear empties the history and leaves the index untouched.
func (c *Conversation) Clear() { c.history = nil }

func (c *Conversation) Append(msgs ...domain.ChatMessage) {
	c.history = append(c.history, msgs...)
}

// History returns a copy of the transcript in chronological order.
func (c *Conversation) History() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}
