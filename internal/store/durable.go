package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/anthropics/threadline/internal/domain"
)

// DurableLog is an EventLog backed by SQLite. The in-memory log stays the
// canonical, sequence-assigning copy; every non-transient append is written
// through to the database in the same call. Opening a DurableLog bulk-loads
// the surviving history once, which is the only O(n) path — incremental
// appends after that are O(1) memory work plus one insert.
type DurableLog struct {
	mu          sync.Mutex
	db          *sql.DB
	mem         *EventLog
	events      *EventRepo
	checkpoints *CheckpointRepo
}

// OpenDurableLog opens (or creates) the database at path and rebuilds the
// in-memory log from every thread's checkpoint forward.
func OpenDurableLog(path string) (*DurableLog, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, domain.WrapCoreError(domain.ErrStoreInit.Code, "open durable log", err)
	}

	l := &DurableLog{
		db:          db,
		mem:         NewEventLog(),
		events:      &EventRepo{},
		checkpoints: &CheckpointRepo{},
	}
	if err := l.load(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *DurableLog) load(ctx context.Context) error {
	cps, err := l.checkpoints.GetAll(ctx, l.db)
	if err != nil {
		return domain.WrapCoreError(domain.ErrStoreQuery.Code, "load checkpoints", err)
	}
	for id, startSeq := range cps {
		l.mem.restoreCheckpoint(id, startSeq)
	}

	ids, err := l.events.ListThreadIDs(ctx, l.db)
	if err != nil {
		return domain.WrapCoreError(domain.ErrStoreQuery.Code, "list threads", err)
	}
	for _, id := range ids {
		events, err := l.events.ListByThread(ctx, l.db, id, cps[id])
		if err != nil {
			return domain.WrapCoreError(domain.ErrStoreQuery.Code, "load thread events", err)
		}
		for _, ev := range events {
			if err := l.mem.restore(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Append assigns the next sequence for the event's thread and stores it.
// Non-transient events are written to the database before Append returns;
// if the write fails, the in-memory append is rolled back so memory and
// disk never disagree.
func (l *DurableLog) Append(ctx context.Context, event domain.ThreadEvent) (domain.ThreadEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored, err := l.mem.Append(event)
	if err != nil {
		return domain.ThreadEvent{}, err
	}
	if stored.Transient {
		return stored, nil
	}

	if err := l.persist(ctx, stored); err != nil {
		l.mem.unappend(stored)
		return domain.ThreadEvent{}, domain.WrapCoreError(domain.ErrStoreWrite.Code, "persist event", err)
	}
	return stored, nil
}

func (l *DurableLog) persist(ctx context.Context, event domain.ThreadEvent) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := l.events.AppendTx(ctx, tx, event, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendBatch appends events in input order, preserving per-thread ordering
// across interleaved threads. Duplicate ids are skipped; the stored events
// are returned with sequences assigned.
func (l *DurableLog) AppendBatch(ctx context.Context, events []domain.ThreadEvent) ([]domain.ThreadEvent, error) {
	stored := make([]domain.ThreadEvent, 0, len(events))
	for _, ev := range events {
		s, err := l.Append(ctx, ev)
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

// LoadRange returns a thread's events from its checkpoint forward.
func (l *DurableLog) LoadRange(threadID domain.ThreadID) ([]domain.ThreadEvent, error) {
	return l.mem.LoadRange(threadID)
}

// Threads returns every known thread id.
func (l *DurableLog) Threads() []domain.ThreadID {
	return l.mem.Threads()
}

// LastSeq returns the newest assigned sequence for a thread.
func (l *DurableLog) LastSeq(threadID domain.ThreadID) int64 {
	return l.mem.LastSeq(threadID)
}

// Compact records a durable checkpoint at uptoSeq for the thread and drops
// the compacted prefix from memory. Persisted rows are never rewritten.
func (l *DurableLog) Compact(ctx context.Context, threadID domain.ThreadID, uptoSeq int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validate against memory first so a bad checkpoint never reaches disk.
	if err := l.mem.Compact(threadID, uptoSeq); err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapCoreError(domain.ErrStoreWrite.Code, "begin compact tx", err)
	}
	defer tx.Rollback()

	if err := l.checkpoints.SaveTx(ctx, tx, threadID, uptoSeq, time.Now().Unix()); err != nil {
		return domain.WrapCoreError(domain.ErrStoreWrite.Code, "save checkpoint", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapCoreError(domain.ErrStoreWrite.Code, "commit checkpoint", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *DurableLog) Close() error {
	return l.db.Close()
}
