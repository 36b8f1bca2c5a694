package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates the closed set of thread event kinds.
type EventKind string

const (
	KindUserMessage   EventKind = "user_message"
	KindAgentMessage  EventKind = "agent_message"
	KindSystemMessage EventKind = "system_message"
	KindToolCall      EventKind = "tool_call"
	KindToolResult    EventKind = "tool_result"
)

// KnownKind reports whether k is one of the closed kinds.
func KnownKind(k EventKind) bool {
	switch k {
	case KindUserMessage, KindAgentMessage, KindSystemMessage, KindToolCall, KindToolResult:
		return true
	}
	return false
}

// MessagePayload carries the text of a user, agent, or system message.
type MessagePayload struct {
	Text string `json:"text"`
}

// ToolCallPayload describes a tool invocation. DelegatedThreadID is set by
// the producer when the call spawns a child thread; it is the only linkage
// between a parent's tool call and the delegate's timeline.
type ToolCallPayload struct {
	CallID            string   `json:"call_id"`
	ToolName          string   `json:"tool_name"`
	Args              string   `json:"args"`
	DelegatedThreadID ThreadID `json:"delegated_thread_id,omitempty"`
}

// ToolResultPayload carries the outcome of an earlier tool call, matched to
// it by CallID.
type ToolResultPayload struct {
	CallID  string `json:"call_id"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// ThreadEvent is the atomic, immutable unit of conversation history. Exactly
// one payload field matching Kind is set. Seq is assigned by the event log at
// append time and is strictly increasing per thread; it, not wall-clock time,
// defines order. Transient events participate in ordering but are not
// durably persisted.
type ThreadEvent struct {
	ID        string    `json:"id"`
	ThreadID  ThreadID  `json:"thread_id"`
	Kind      EventKind `json:"kind"`
	Seq       int64     `json:"seq"`
	Transient bool      `json:"transient,omitempty"`

	Message    *MessagePayload    `json:"message,omitempty"`
	ToolCall   *ToolCallPayload   `json:"tool_call,omitempty"`
	ToolResult *ToolResultPayload `json:"tool_result,omitempty"`
}

// Validate checks that the event carries an ID, a well-formed thread ID, a
// known kind, and the payload matching that kind.
func (e ThreadEvent) Validate() error {
	if e.ID == "" {
		return NewCoreError(ErrMalformedEvent.Code, "event id is empty")
	}
	if err := e.ThreadID.Validate(); err != nil {
		return err
	}
	if !KnownKind(e.Kind) {
		return NewCoreError(
			ErrMalformedEvent.Code,
			fmt.Sprintf("event %s has unknown kind %q", e.ID, e.Kind),
		)
	}
	switch e.Kind {
	case KindUserMessage, KindAgentMessage, KindSystemMessage:
		if e.Message == nil {
			return NewCoreError(ErrMalformedEvent.Code, fmt.Sprintf("event %s is missing message payload", e.ID))
		}
	case KindToolCall:
		if e.ToolCall == nil || e.ToolCall.CallID == "" {
			return NewCoreError(ErrMalformedEvent.Code, fmt.Sprintf("event %s is missing tool call payload or call id", e.ID))
		}
	case KindToolResult:
		if e.ToolResult == nil || e.ToolResult.CallID == "" {
			return NewCoreError(ErrMalformedEvent.Code, fmt.Sprintf("event %s is missing tool result payload or call id", e.ID))
		}
	}
	return nil
}

// PayloadJSON serializes the kind-matching payload for persistence.
func (e ThreadEvent) PayloadJSON() (string, error) {
	var v any
	switch e.Kind {
	case KindUserMessage, KindAgentMessage, KindSystemMessage:
		v = e.Message
	case KindToolCall:
		v = e.ToolCall
	case KindToolResult:
		v = e.ToolResult
	default:
		return "", NewCoreError(ErrMalformedEvent.Code, fmt.Sprintf("unknown kind %q", e.Kind))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// DecodePayload populates the payload field matching e.Kind from its
// persisted JSON form.
func (e *ThreadEvent) DecodePayload(data string) error {
	switch e.Kind {
	case KindUserMessage, KindAgentMessage, KindSystemMessage:
		e.Message = &MessagePayload{}
		if err := json.Unmarshal([]byte(data), e.Message); err != nil {
			return fmt.Errorf("decode message payload: %w", err)
		}
	case KindToolCall:
		e.ToolCall = &ToolCallPayload{}
		if err := json.Unmarshal([]byte(data), e.ToolCall); err != nil {
			return fmt.Errorf("decode tool call payload: %w", err)
		}
	case KindToolResult:
		e.ToolResult = &ToolResultPayload{}
		if err := json.Unmarshal([]byte(data), e.ToolResult); err != nil {
			return fmt.Errorf("decode tool result payload: %w", err)
		}
	default:
		return NewCoreError(ErrMalformedEvent.Code, fmt.Sprintf("unknown kind %q", e.Kind))
	}
	return nil
}
