// Package compose routes thread events to per-thread materializers and
// assembles the root and delegate timelines into one snapshot.
package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/threadline/internal/domain"
	"github.com/anthropics/threadline/internal/timeline"
)

// Composer owns the registry of materializers, exactly one per thread id.
// The registry map is the only structure shared across threads, so a single
// mutex around it (and around per-thread processing) is all the locking the
// design needs; materializers never share state with each other.
type Composer struct {
	mu   sync.Mutex
	root domain.ThreadID
	mats map[domain.ThreadID]*timeline.Materializer
}

// NewComposer creates a composer whose root timeline is the given depth-1
// thread id.
func NewComposer(root domain.ThreadID) (*Composer, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	if !root.IsRoot() {
		return nil, domain.NewCoreError(
			domain.ErrInvalidThreadID.Code,
			fmt.Sprintf("root thread id %q must have depth 1", root),
		)
	}
	return &Composer{
		root: root,
		mats: make(map[domain.ThreadID]*timeline.Materializer),
	}, nil
}

// Root returns the configured root thread id.
func (c *Composer) Root() domain.ThreadID {
	return c.root
}

// ProcessThreads groups events by exact thread id, routes each group to that
// thread's materializer, and returns the assembled snapshot. A thread seen
// for the first time is bulk-loaded; a known thread gets incremental
// appends. Per-thread failures (sequence violations) are joined into the
// returned error, but healthy threads still materialize and appear in the
// snapshot, so callers can render a degraded view.
func (c *Composer) ProcessThreads(ctx context.Context, events []domain.ThreadEvent) (domain.ProcessedThreads, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Group preserving input order within each thread.
	order := make([]domain.ThreadID, 0)
	groups := make(map[domain.ThreadID][]domain.ThreadEvent)
	for _, ev := range events {
		if _, ok := groups[ev.ThreadID]; !ok {
			order = append(order, ev.ThreadID)
		}
		groups[ev.ThreadID] = append(groups[ev.ThreadID], ev)
	}

	var errs []error
	for _, id := range order {
		if err := c.processLocked(ctx, id, groups[id]); err != nil {
			errs = append(errs, err)
		}
	}
	return c.snapshotLocked(), errors.Join(errs...)
}

func (c *Composer) processLocked(ctx context.Context, id domain.ThreadID, events []domain.ThreadEvent) error {
	m, ok := c.mats[id]
	if !ok {
		m = timeline.New(id)
		c.mats[id] = m
	}
	if !m.Loaded() {
		return m.LoadEvents(ctx, events)
	}
	for _, ev := range events {
		if err := m.AppendEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// Append routes one already-sequenced event to its thread's materializer.
// This is the streaming path: O(1) per event.
func (c *Composer) Append(event domain.ThreadEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mats[event.ThreadID]
	if !ok {
		m = timeline.New(event.ThreadID)
		c.mats[event.ThreadID] = m
	}
	return m.AppendEvent(event)
}

// Load replaces a thread's timeline by replaying the given events, creating
// the materializer if needed. Used at session resumption and after
// compaction resets.
func (c *Composer) Load(ctx context.Context, id domain.ThreadID, events []domain.ThreadEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mats[id]
	if !ok {
		m = timeline.New(id)
		c.mats[id] = m
	}
	return m.LoadEvents(ctx, events)
}

// Snapshot assembles the current root timeline plus every delegate timeline.
// It copies item slices but never reprocesses events.
func (c *Composer) Snapshot() domain.ProcessedThreads {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Composer) snapshotLocked() domain.ProcessedThreads {
	out := domain.ProcessedThreads{
		Delegates: make(map[domain.ThreadID]domain.Timeline),
	}
	for id, m := range c.mats {
		if id == c.root {
			out.Root = m.Timeline()
			continue
		}
		out.Delegates[id] = m.Timeline()
	}
	return out
}

// TimelineFor returns one thread's timeline, if the thread is tracked.
func (c *Composer) TimelineFor(id domain.ThreadID) (domain.Timeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mats[id]
	if !ok {
		return domain.Timeline{}, false
	}
	return m.Timeline(), true
}

// Threads returns the tracked thread ids, root included if present.
func (c *Composer) Threads() []domain.ThreadID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]domain.ThreadID, 0, len(c.mats))
	for id := range c.mats {
		ids = append(ids, id)
	}
	return ids
}

// Diagnostics returns the recorded non-fatal anomalies for one thread.
func (c *Composer) Diagnostics(id domain.ThreadID) []domain.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.mats[id]
	if !ok {
		return nil
	}
	return m.Diagnostics()
}
