// Package timeline turns one thread's events into an ordered, render-ready
// timeline, incrementally. Each event costs O(1) amortized work no matter how
// long the conversation is; full replay happens only at session resumption.
package timeline

import (
	"context"
	"fmt"

	"github.com/anthropics/threadline/internal/domain"
)

// Materializer owns exactly one thread's timeline and keeps it consistent
// with the events appended so far for that thread. It is not safe for
// concurrent use; the composer serializes access per thread.
//
// Items live in an append-only slice and pendingCalls holds indices into it,
// so completing a tool call mutates the item in place even after the slice
// has been reallocated by growth.
type Materializer struct {
	threadID     domain.ThreadID
	items        []domain.TimelineItem
	pendingCalls map[string]int
	seen         map[string]struct{}
	lastSeq      int64
	loaded       bool
	diags        []domain.Diagnostic
	// failed latches a sequence violation: once the append-order contract is
	// broken the timeline can no longer be trusted, so every later append
	// surfaces the same error instead of compounding it.
	failed error
}

// New creates an empty materializer for the given thread.
func New(threadID domain.ThreadID) *Materializer {
	return &Materializer{
		threadID:     threadID,
		pendingCalls: make(map[string]int),
		seen:         make(map[string]struct{}),
	}
}

// ThreadID returns the thread this materializer owns.
func (m *Materializer) ThreadID() domain.ThreadID {
	return m.threadID
}

// Loaded reports whether the materializer has processed at least one event
// or completed a bulk load.
func (m *Materializer) Loaded() bool {
	return m.loaded
}

// AppendEvent folds one event into the timeline.
//
// A replayed event (id already seen) is absorbed silently. A fresh event
// whose sequence is not strictly greater than the last processed one fails
// with ErrSequenceViolation, which is fatal for this thread: the single
// writer store contract is broken upstream. Malformed events are skipped and
// recorded as diagnostics, never failing the timeline.
func (m *Materializer) AppendEvent(event domain.ThreadEvent) error {
	if m.failed != nil {
		return m.failed
	}
	if event.ThreadID != m.threadID {
		return domain.NewCoreError(
			domain.ErrWrongMaterializer.Code,
			fmt.Sprintf("event %s belongs to thread %s, materializer owns %s", event.ID, event.ThreadID, m.threadID),
		)
	}
	if _, ok := m.seen[event.ID]; ok {
		return nil
	}
	if event.Seq <= m.lastSeq {
		m.failed = domain.NewCoreError(
			domain.ErrSequenceViolation.Code,
			fmt.Sprintf("thread %s: fresh event %s has seq %d, already processed up to %d", m.threadID, event.ID, event.Seq, m.lastSeq),
		)
		return m.failed
	}

	m.seen[event.ID] = struct{}{}
	m.lastSeq = event.Seq
	m.loaded = true

	if err := event.Validate(); err != nil {
		m.diagnose(domain.ErrMalformedEvent.Code, event, err.Error())
		return nil
	}

	switch event.Kind {
	case domain.KindUserMessage:
		m.appendMessage(domain.RoleUser, event.Message.Text)
	case domain.KindAgentMessage:
		m.appendMessage(domain.RoleAgent, event.Message.Text)
	case domain.KindSystemMessage:
		m.appendMessage(domain.RoleSystem, event.Message.Text)
	case domain.KindToolCall:
		m.applyToolCall(event)
	case domain.KindToolResult:
		m.applyToolResult(event)
	}
	return nil
}

func (m *Materializer) appendMessage(role domain.MessageRole, text string) {
	m.items = append(m.items, domain.TimelineItem{
		Kind: domain.ItemMessage,
		Role: role,
		Text: text,
	})
}

func (m *Materializer) applyToolCall(event domain.ThreadEvent) {
	call := event.ToolCall
	m.items = append(m.items, domain.TimelineItem{
		Kind:              domain.ItemToolExecution,
		CallID:            call.CallID,
		ToolName:          call.ToolName,
		Args:              call.Args,
		DelegatedThreadID: call.DelegatedThreadID,
		Status:            domain.ToolPending,
	})
	m.pendingCalls[call.CallID] = len(m.items) - 1
}

func (m *Materializer) applyToolResult(event domain.ThreadEvent) {
	result := event.ToolResult
	idx, ok := m.pendingCalls[result.CallID]
	if !ok {
		// The originating call lies outside the processed range, e.g. behind
		// a compaction boundary. Render the result instead of dropping it.
		m.diagnose(domain.ErrOrphanedToolResult.Code, event,
			fmt.Sprintf("no pending call %s", result.CallID))
		m.items = append(m.items, domain.TimelineItem{
			Kind:    domain.ItemStandaloneResult,
			CallID:  result.CallID,
			Output:  result.Output,
			IsError: result.IsError,
		})
		return
	}

	item := &m.items[idx]
	item.Status = domain.ToolComplete
	if result.IsError {
		item.Status = domain.ToolError
	}
	item.Output = result.Output
	item.IsError = result.IsError
	delete(m.pendingCalls, result.CallID)
}

// LoadEvents rebuilds the timeline from scratch out of the given ordered
// events. The rebuild is all-or-nothing: on cancellation or a sequence
// violation the materializer keeps its previous state untouched. Intended
// for session resumption and post-compaction reloads only; steady-state
// processing goes through AppendEvent.
func (m *Materializer) LoadEvents(ctx context.Context, events []domain.ThreadEvent) error {
	fresh := New(m.threadID)
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return domain.WrapCoreError(domain.ErrLoadCancelled.Code,
				fmt.Sprintf("loading thread %s", m.threadID), err)
		}
		if err := fresh.AppendEvent(ev); err != nil {
			return err
		}
	}

	m.items = fresh.items
	m.pendingCalls = fresh.pendingCalls
	m.seen = fresh.seen
	m.lastSeq = fresh.lastSeq
	m.diags = fresh.diags
	m.failed = nil
	m.loaded = true
	return nil
}

// Timeline returns a snapshot of the current timeline. The items slice is
// copied so callers can hold the snapshot across later appends; nothing is
// recomputed.
func (m *Materializer) Timeline() domain.Timeline {
	items := make([]domain.TimelineItem, len(m.items))
	copy(items, m.items)
	return domain.Timeline{Items: items, LastSeq: m.lastSeq}
}

// Diagnostics returns the non-fatal anomalies recorded so far, oldest first.
func (m *Materializer) Diagnostics() []domain.Diagnostic {
	out := make([]domain.Diagnostic, len(m.diags))
	copy(out, m.diags)
	return out
}

func (m *Materializer) diagnose(code int, event domain.ThreadEvent, msg string) {
	m.diags = append(m.diags, domain.Diagnostic{
		Code:    code,
		EventID: event.ID,
		Seq:     event.Seq,
		Message: msg,
	})
}
