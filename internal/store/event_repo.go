package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/threadline/internal/domain"
)

// EventRepo handles persistence for ThreadEvent records.
type EventRepo struct{}

// AppendTx inserts a thread event within an existing transaction.
func (r *EventRepo) AppendTx(ctx context.Context, tx *sql.Tx, event domain.ThreadEvent, createdAt int64) error {
	payload, err := event.PayloadJSON()
	if err != nil {
		return err
	}

	const q = `INSERT INTO thread_events (thread_id, event_id, seq_no, kind, payload_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		string(event.ThreadID),
		event.ID,
		event.Seq,
		string(event.Kind),
		payload,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListByThread returns events for a thread with sequence numbers greater than
// sinceSeq, ordered by sequence number ascending.
func (r *EventRepo) ListByThread(ctx context.Context, db *sql.DB, threadID domain.ThreadID, sinceSeq int64) ([]domain.ThreadEvent, error) {
	const q = `SELECT thread_id, event_id, seq_no, kind, payload_json
FROM thread_events
WHERE thread_id = ? AND seq_no > ?
ORDER BY seq_no ASC`

	rows, err := db.QueryContext(ctx, q, string(threadID), sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.ThreadEvent
	for rows.Next() {
		var e domain.ThreadEvent
		var thread, kind, payload string
		if err := rows.Scan(&thread, &e.ID, &e.Seq, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.ThreadID = domain.ThreadID(thread)
		e.Kind = domain.EventKind(kind)
		// A payload that no longer decodes is kept with a nil payload rather
		// than failing the whole load; the materializer records it as
		// malformed and the timeline stays usable.
		_ = e.DecodePayload(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListThreadIDs returns every distinct thread id present in the log, in
// lexical order.
func (r *EventRepo) ListThreadIDs(ctx context.Context, db *sql.DB) ([]domain.ThreadID, error) {
	const q = `SELECT DISTINCT thread_id FROM thread_events ORDER BY thread_id ASC`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list thread ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.ThreadID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan thread id: %w", err)
		}
		ids = append(ids, domain.ThreadID(id))
	}
	return ids, rows.Err()
}
