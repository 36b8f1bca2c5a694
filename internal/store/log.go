// Package store provides the append-only event log for conversation threads,
// with an in-memory canonical copy and SQLite-backed persistence.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/threadline/internal/domain"
)

// EventLog is the in-memory, per-thread, append-only event store. It is the
// sole authority for assigning sequence numbers. Append and LastSeq are O(1);
// LoadRange is O(n) in one thread's history and is meant for bulk reads at
// session resumption, not for the per-event hot path.
type EventLog struct {
	mu      sync.Mutex
	threads map[domain.ThreadID]*threadLog
}

type threadLog struct {
	// events holds the effective history, from the compaction checkpoint
	// forward, in sequence order.
	events []domain.ThreadEvent
	// ids tracks every event id ever appended to the thread, including ids
	// behind the checkpoint, so duplicate detection survives compaction.
	ids      map[string]struct{}
	lastSeq  int64
	startSeq int64
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{threads: make(map[domain.ThreadID]*threadLog)}
}

// Append assigns the next sequence number for the event's thread, stores the
// event, and returns the stored copy. Appending an id the thread has already
// seen fails with ErrDuplicateEventID and leaves the log unchanged.
func (l *EventLog) Append(event domain.ThreadEvent) (domain.ThreadEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(event)
}

func (l *EventLog) appendLocked(event domain.ThreadEvent) (domain.ThreadEvent, error) {
	if event.ID == "" {
		return domain.ThreadEvent{}, domain.NewCoreError(domain.ErrMalformedEvent.Code, "event id is empty")
	}
	if err := event.ThreadID.Validate(); err != nil {
		return domain.ThreadEvent{}, err
	}

	tl := l.thread(event.ThreadID)
	if _, dup := tl.ids[event.ID]; dup {
		return domain.ThreadEvent{}, domain.NewCoreError(
			domain.ErrDuplicateEventID.Code,
			fmt.Sprintf("event %s was already appended to thread %s", event.ID, event.ThreadID),
		)
	}

	tl.lastSeq++
	event.Seq = tl.lastSeq
	tl.events = append(tl.events, event)
	tl.ids[event.ID] = struct{}{}
	return event, nil
}

// AppendBatch appends events in input order, which preserves per-thread
// ordering even when threads are interleaved. Duplicate ids are skipped.
// It returns the events that were stored, with sequences assigned.
func (l *EventLog) AppendBatch(events []domain.ThreadEvent) ([]domain.ThreadEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := make([]domain.ThreadEvent, 0, len(events))
	for _, ev := range events {
		s, err := l.appendLocked(ev)
		if err != nil {
			if domain.HasCode(err, domain.ErrDuplicateEventID.Code) {
				continue
			}
			return stored, err
		}
		stored = append(stored, s)
	}
	return stored, nil
}

// LoadRange returns all events for a thread from its compaction checkpoint
// forward, in sequence order. The returned slice is a copy.
func (l *EventLog) LoadRange(threadID domain.ThreadID) ([]domain.ThreadEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.threads[threadID]
	if !ok {
		return nil, domain.NewCoreError(
			domain.ErrThreadNotFound.Code,
			fmt.Sprintf("thread %s has no events", threadID),
		)
	}
	out := make([]domain.ThreadEvent, len(tl.events))
	copy(out, tl.events)
	return out, nil
}

// Threads returns every known thread id in lexical order.
func (l *EventLog) Threads() []domain.ThreadID {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]domain.ThreadID, 0, len(l.threads))
	for id := range l.threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LastSeq returns the newest assigned sequence for a thread, or 0 for an
// unknown thread.
func (l *EventLog) LastSeq(threadID domain.ThreadID) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tl, ok := l.threads[threadID]; ok {
		return tl.lastSeq
	}
	return 0
}

// Compact drops a thread's events with sequence <= uptoSeq, establishing a
// new logical start point. Old events are not rewritten, only released;
// sequence assignment continues from lastSeq.
func (l *EventLog) Compact(threadID domain.ThreadID, uptoSeq int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.threads[threadID]
	if !ok {
		return domain.NewCoreError(
			domain.ErrThreadNotFound.Code,
			fmt.Sprintf("thread %s has no events", threadID),
		)
	}
	if uptoSeq < tl.startSeq || uptoSeq > tl.lastSeq {
		return domain.NewCoreError(
			domain.ErrBadCheckpoint.Code,
			fmt.Sprintf("checkpoint %d outside [%d, %d] for thread %s", uptoSeq, tl.startSeq, tl.lastSeq, threadID),
		)
	}

	cut := 0
	for cut < len(tl.events) && tl.events[cut].Seq <= uptoSeq {
		cut++
	}
	tl.events = append([]domain.ThreadEvent(nil), tl.events[cut:]...)
	tl.startSeq = uptoSeq
	return nil
}

// restore inserts an event that already carries its sequence, for rebuilding
// the in-memory log from persistence. Sequences must arrive increasing.
func (l *EventLog) restore(event domain.ThreadEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl := l.thread(event.ThreadID)
	if event.Seq <= tl.lastSeq {
		return domain.NewCoreError(
			domain.ErrSequenceViolation.Code,
			fmt.Sprintf("restored event %s has seq %d, last is %d", event.ID, event.Seq, tl.lastSeq),
		)
	}
	tl.events = append(tl.events, event)
	tl.ids[event.ID] = struct{}{}
	tl.lastSeq = event.Seq
	return nil
}

// restoreCheckpoint records a compaction start point for a thread being
// rebuilt from persistence.
func (l *EventLog) restoreCheckpoint(threadID domain.ThreadID, startSeq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl := l.thread(threadID)
	tl.startSeq = startSeq
	if tl.lastSeq < startSeq {
		tl.lastSeq = startSeq
	}
}

// unappend removes the most recently appended event of a thread. It exists
// so DurableLog can roll back the in-memory append when the durable write
// fails, and is only valid immediately after that append.
func (l *EventLog) unappend(event domain.ThreadEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.threads[event.ThreadID]
	if !ok || len(tl.events) == 0 {
		return
	}
	last := tl.events[len(tl.events)-1]
	if last.ID != event.ID {
		return
	}
	tl.events = tl.events[:len(tl.events)-1]
	delete(tl.ids, event.ID)
	tl.lastSeq--
}

func (l *EventLog) thread(id domain.ThreadID) *threadLog {
	tl, ok := l.threads[id]
	if !ok {
		tl = &threadLog{ids: make(map[string]struct{})}
		l.threads[id] = tl
	}
	return tl
}
