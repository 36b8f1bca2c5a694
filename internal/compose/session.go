package compose

import (
	"context"

	"github.com/anthropics/threadline/internal/domain"
	"github.com/anthropics/threadline/internal/store"
)

// Session ties a durable event log to a composer: producers append raw
// events, the log assigns sequences and persists, and the composer keeps
// every timeline current. This is the full ingestion path — one O(1) hop per
// event after the initial Resume.
type Session struct {
	log      *store.DurableLog
	composer *Composer
}

// NewSession wires a session around an opened log. Call Resume before
// serving reads so existing history is materialized.
func NewSession(log *store.DurableLog, root domain.ThreadID) (*Session, error) {
	composer, err := NewComposer(root)
	if err != nil {
		return nil, err
	}
	return &Session{log: log, composer: composer}, nil
}

// Resume bulk-loads every thread's surviving history into fresh
// materializers. This is the one sanctioned O(n) pass; cancelling the
// context leaves already-loaded threads intact and unloaded ones untouched.
func (s *Session) Resume(ctx context.Context) error {
	for _, id := range s.log.Threads() {
		events, err := s.log.LoadRange(id)
		if err != nil {
			return err
		}
		if err := s.composer.Load(ctx, id, events); err != nil {
			return err
		}
	}
	return nil
}

// Append stores one event and folds it into its thread's timeline. The
// returned event carries the assigned sequence. A duplicate id is a soft
// error: the log and timelines are unchanged and the caller may ignore it.
func (s *Session) Append(ctx context.Context, event domain.ThreadEvent) (domain.ThreadEvent, error) {
	stored, err := s.log.Append(ctx, event)
	if err != nil {
		return domain.ThreadEvent{}, err
	}
	if err := s.composer.Append(stored); err != nil {
		return stored, err
	}
	return stored, nil
}

// AppendBatch stores and materializes events in input order, skipping
// duplicate ids, preserving per-thread ordering across interleaved threads.
func (s *Session) AppendBatch(ctx context.Context, events []domain.ThreadEvent) ([]domain.ThreadEvent, error) {
	stored := make([]domain.ThreadEvent, 0, len(events))
	for _, ev := range events {
		got, err := s.Append(ctx, ev)
		if err != nil {
			if domain.HasCode(err, domain.ErrDuplicateEventID.Code) {
				continue
			}
			return stored, err
		}
		stored = append(stored, got)
	}
	return stored, nil
}

// Compact truncates a thread's effective history at uptoSeq and rebuilds its
// timeline from the new checkpoint forward. Results whose calls fell behind
// the checkpoint will rematerialize as standalone items.
func (s *Session) Compact(ctx context.Context, threadID domain.ThreadID, uptoSeq int64) error {
	if err := s.log.Compact(ctx, threadID, uptoSeq); err != nil {
		return err
	}
	events, err := s.log.LoadRange(threadID)
	if err != nil {
		return err
	}
	return s.composer.Load(ctx, threadID, events)
}

// Snapshot returns the assembled root and delegate timelines.
func (s *Session) Snapshot() domain.ProcessedThreads {
	return s.composer.Snapshot()
}

// Timeline returns one thread's timeline, if tracked.
func (s *Session) Timeline(id domain.ThreadID) (domain.Timeline, bool) {
	return s.composer.TimelineFor(id)
}

// Events returns a thread's stored events from its checkpoint forward.
func (s *Session) Events(id domain.ThreadID) ([]domain.ThreadEvent, error) {
	return s.log.LoadRange(id)
}

// Threads returns every thread id known to the log.
func (s *Session) Threads() []domain.ThreadID {
	return s.log.Threads()
}

// Root returns the root thread id.
func (s *Session) Root() domain.ThreadID {
	return s.composer.Root()
}

// Diagnostics returns the non-fatal anomalies recorded for a thread.
func (s *Session) Diagnostics(id domain.ThreadID) []domain.Diagnostic {
	return s.composer.Diagnostics(id)
}
