package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/anthropics/threadline/internal/domain"
)

// CheckpointRepo persists per-thread compaction checkpoints. A checkpoint is
// the sequence number before which history is no longer replayed; the rows
// themselves stay in thread_events untouched.
type CheckpointRepo struct{}

// SaveTx upserts the checkpoint for a thread within an existing transaction.
func (r *CheckpointRepo) SaveTx(ctx context.Context, tx *sql.Tx, threadID domain.ThreadID, startSeq, createdAt int64) error {
	const q = `INSERT INTO thread_checkpoints (thread_id, start_seq, created_at)
VALUES (?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET start_seq = excluded.start_seq, created_at = excluded.created_at`
	_, err := tx.ExecContext(ctx, q, string(threadID), startSeq, createdAt)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// GetAll returns the checkpoint for every thread that has one.
func (r *CheckpointRepo) GetAll(ctx context.Context, db *sql.DB) (map[domain.ThreadID]int64, error) {
	const q = `SELECT thread_id, start_seq FROM thread_checkpoints`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := make(map[domain.ThreadID]int64)
	for rows.Next() {
		var id string
		var startSeq int64
		if err := rows.Scan(&id, &startSeq); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints[domain.ThreadID(id)] = startSeq
	}
	return checkpoints, rows.Err()
}
