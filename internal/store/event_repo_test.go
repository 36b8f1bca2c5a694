package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/anthropics/threadline/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func appendOne(t *testing.T, db *sql.DB, repo *EventRepo, event domain.ThreadEvent) {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.AppendTx(context.Background(), tx, event, time.Now().Unix()); err != nil {
		tx.Rollback()
		t.Fatalf("AppendTx %s: %v", event.ID, err)
	}
	tx.Commit()
}

func TestEventRepo_AppendAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &EventRepo{}

	events := []domain.ThreadEvent{
		{ID: "e1", ThreadID: "main", Kind: domain.KindUserMessage, Seq: 1, Message: &domain.MessagePayload{Text: "hi"}},
		{ID: "e2", ThreadID: "main", Kind: domain.KindToolCall, Seq: 2, ToolCall: &domain.ToolCallPayload{CallID: "t1", ToolName: "bash", Args: "ls"}},
		{ID: "e3", ThreadID: "main", Kind: domain.KindToolResult, Seq: 3, ToolResult: &domain.ToolResultPayload{CallID: "t1", Output: "file.txt"}},
	}
	for _, e := range events {
		appendOne(t, db, repo, e)
	}

	got, err := repo.ListByThread(ctx, db, "main", 0)
	if err != nil {
		t.Fatalf("ListByThread: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[1].ToolCall == nil || got[1].ToolCall.CallID != "t1" {
		t.Errorf("tool call payload not round-tripped: %+v", got[1])
	}

	got, err = repo.ListByThread(ctx, db, "main", 1)
	if err != nil {
		t.Fatalf("ListByThread sinceSeq=1: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Seq != 2 {
		t.Errorf("first event Seq = %d, want 2", got[0].Seq)
	}
}

func TestEventRepo_DuplicateEventID(t *testing.T) {
	db := newTestDB(t)
	repo := &EventRepo{}

	event := domain.ThreadEvent{
		ID: "e1", ThreadID: "main", Kind: domain.KindUserMessage,
		Seq: 1, Message: &domain.MessagePayload{Text: "hi"},
	}
	appendOne(t, db, repo, event)

	// Same (thread_id, event_id) must be rejected by the schema.
	event.Seq = 2
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = repo.AppendTx(context.Background(), tx, event, time.Now().Unix())
	tx.Rollback()
	if err == nil {
		t.Error("expected error on duplicate event id, got nil")
	}
}

func TestEventRepo_ListThreadIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &EventRepo{}

	appendOne(t, db, repo, domain.ThreadEvent{ID: "m1", ThreadID: "main", Kind: domain.KindUserMessage, Seq: 1, Message: &domain.MessagePayload{Text: "a"}})
	appendOne(t, db, repo, domain.ThreadEvent{ID: "d1", ThreadID: "main.1", Kind: domain.KindUserMessage, Seq: 1, Message: &domain.MessagePayload{Text: "b"}})

	ids, err := repo.ListThreadIDs(ctx, db)
	if err != nil {
		t.Fatalf("ListThreadIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "main" || ids[1] != "main.1" {
		t.Errorf("ids = %v, want [main main.1]", ids)
	}
}

func TestCheckpointRepo_SaveAndGetAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := &CheckpointRepo{}

	save := func(thread domain.ThreadID, seq int64) {
		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := repo.SaveTx(ctx, tx, thread, seq, time.Now().Unix()); err != nil {
			tx.Rollback()
			t.Fatalf("SaveTx: %v", err)
		}
		tx.Commit()
	}

	save("main", 10)
	save("main", 25) // upsert wins
	save("main.1", 3)

	got, err := repo.GetAll(ctx, db)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if got["main"] != 25 {
		t.Errorf("main checkpoint = %d, want 25", got["main"])
	}
	if got["main.1"] != 3 {
		t.Errorf("main.1 checkpoint = %d, want 3", got["main.1"])
	}
}
