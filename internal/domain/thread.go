// Package domain defines the core types for the threadline conversational log.
package domain

import (
	"fmt"
	"strings"
)

// ThreadID identifies a conversation thread. IDs are hierarchical: a child
// thread appends a dot-separated segment to its parent's ID, so "main.1.2"
// is a child of "main.1", which is a child of the root thread "main".
// Beyond this one structural rule the value is opaque; segments are assigned
// by the task orchestration layer, not by this package.
type ThreadID string

// Validate checks the structural rule: at least one segment, no empty segments.
func (t ThreadID) Validate() error {
	if t == "" {
		return NewCoreError(ErrInvalidThreadID.Code, "thread id is empty")
	}
	for _, seg := range strings.Split(string(t), ".") {
		if seg == "" {
			return NewCoreError(
				ErrInvalidThreadID.Code,
				fmt.Sprintf("thread id %q contains an empty segment", t),
			)
		}
	}
	return nil
}

// Depth returns the number of segments. The root of a hierarchy has depth 1.
func (t ThreadID) Depth() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), ".") + 1
}

// Parent returns the thread ID with the last segment removed, and whether a
// parent exists. A depth-1 ID has no parent.
func (t ThreadID) Parent() (ThreadID, bool) {
	idx := strings.LastIndex(string(t), ".")
	if idx < 0 {
		return "", false
	}
	return t[:idx], true
}

// IsRoot reports whether the ID has no parent.
func (t ThreadID) IsRoot() bool {
	return t != "" && !strings.Contains(string(t), ".")
}
