package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/threadline/internal/domain"
)

func TestDurableLog_AppendAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")
	ctx := context.Background()

	l, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("OpenDurableLog: %v", err)
	}

	if _, err := l.Append(ctx, userEvent("e1", "main", "hi")); err != nil {
		t.Fatalf("Append e1: %v", err)
	}
	if _, err := l.Append(ctx, userEvent("d1", "main.1", "sub")); err != nil {
		t.Fatalf("Append d1: %v", err)
	}
	if _, err := l.Append(ctx, userEvent("e2", "main", "more")); err != nil {
		t.Fatalf("Append e2: %v", err)
	}
	l.Close()

	// Reopen: history must come back with the same sequences.
	l2, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	events, err := l2.LoadRange("main")
	if err != nil {
		t.Fatalf("LoadRange main: %v", err)
	}
	if len(events) != 2 || events[0].ID != "e1" || events[1].ID != "e2" {
		t.Fatalf("main events = %+v, want e1, e2", events)
	}
	if events[1].Seq != 2 {
		t.Errorf("e2 seq = %d, want 2", events[1].Seq)
	}
	if got := l2.Threads(); len(got) != 2 {
		t.Errorf("threads = %v, want 2 entries", got)
	}

	// Sequence assignment continues after resumption.
	stored, err := l2.Append(ctx, userEvent("e3", "main", "again"))
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if stored.Seq != 3 {
		t.Errorf("seq after reopen = %d, want 3", stored.Seq)
	}
}

func TestDurableLog_TransientNotPersisted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")
	ctx := context.Background()

	l, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("OpenDurableLog: %v", err)
	}

	if _, err := l.Append(ctx, userEvent("e1", "main", "durable")); err != nil {
		t.Fatalf("Append e1: %v", err)
	}
	transient := userEvent("n1", "main", "ephemeral notice")
	transient.Transient = true
	stored, err := l.Append(ctx, transient)
	if err != nil {
		t.Fatalf("Append transient: %v", err)
	}
	if stored.Seq != 2 {
		t.Errorf("transient seq = %d, want 2 (ordered with durable events)", stored.Seq)
	}
	if _, err := l.Append(ctx, userEvent("e2", "main", "durable two")); err != nil {
		t.Fatalf("Append e2: %v", err)
	}

	// Before restart the transient event is visible.
	events, err := l.LoadRange("main")
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events pre-restart, got %d", len(events))
	}
	l.Close()

	// After restart only durable events survive; the seq gap remains.
	l2, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	events, err = l2.LoadRange("main")
	if err != nil {
		t.Fatalf("LoadRange after reopen: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events post-restart, got %d", len(events))
	}
	if events[1].ID != "e2" || events[1].Seq != 3 {
		t.Errorf("surviving event = %+v, want e2 with seq 3", events[1])
	}
}

func TestDurableLog_CompactSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")
	ctx := context.Background()

	l, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("OpenDurableLog: %v", err)
	}
	for _, id := range []string{"e1", "e2", "e3"} {
		if _, err := l.Append(ctx, userEvent(id, "main", id)); err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
	}
	if err := l.Compact(ctx, "main", 2); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	l.Close()

	l2, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	events, err := l2.LoadRange("main")
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e3" {
		t.Fatalf("post-compaction events = %+v, want only e3", events)
	}
	if l2.LastSeq("main") != 3 {
		t.Errorf("LastSeq = %d, want 3", l2.LastSeq("main"))
	}
}

func TestDurableLog_DuplicateAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")
	ctx := context.Background()

	l, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("OpenDurableLog: %v", err)
	}
	if _, err := l.Append(ctx, userEvent("e1", "main", "hi")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	l.Close()

	l2, err := OpenDurableLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	_, err = l2.Append(ctx, userEvent("e1", "main", "replay"))
	if !domain.HasCode(err, domain.ErrDuplicateEventID.Code) {
		t.Errorf("expected ErrDuplicateEventID after reopen, got %v", err)
	}
}
