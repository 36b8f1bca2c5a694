package domain

// ItemKind tags the variants of TimelineItem.
type ItemKind string

const (
	ItemMessage          ItemKind = "message"
	ItemToolExecution    ItemKind = "tool_execution"
	ItemStandaloneResult ItemKind = "standalone_result"
)

// MessageRole identifies the author of a message item.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

// ToolStatus is the lifecycle of a tool execution item. An item moves from
// Pending to exactly one of Complete or Error and never regresses.
type ToolStatus string

const (
	ToolPending  ToolStatus = "pending"
	ToolComplete ToolStatus = "complete"
	ToolError    ToolStatus = "error"
)

// TimelineItem is one renderable entry in a timeline, tagged by Kind.
// Message items use Role and Text. ToolExecution items use CallID, ToolName,
// Args, DelegatedThreadID, Status, and Output. StandaloneResult items use
// CallID, Output, and IsError only; they render results whose originating
// call lies before the processed range (e.g. behind a compaction boundary).
type TimelineItem struct {
	Kind ItemKind `json:"kind"`

	Role MessageRole `json:"role,omitempty"`
	Text string      `json:"text,omitempty"`

	CallID            string     `json:"call_id,omitempty"`
	ToolName          string     `json:"tool_name,omitempty"`
	Args              string     `json:"args,omitempty"`
	DelegatedThreadID ThreadID   `json:"delegated_thread_id,omitempty"`
	Status            ToolStatus `json:"status,omitempty"`
	Output            string     `json:"output,omitempty"`
	IsError           bool       `json:"is_error,omitempty"`
}

// Timeline is the ordered, render-ready view of one thread's history.
// LastSeq is the sequence number of the newest event reflected in Items.
type Timeline struct {
	Items   []TimelineItem `json:"items"`
	LastSeq int64          `json:"last_seq"`
}

// ProcessedThreads is a snapshot of every materialized timeline in a batch:
// the root conversation plus one delegate timeline per child thread ID.
// It references timelines, it does not own events.
type ProcessedThreads struct {
	Root      Timeline              `json:"root"`
	Delegates map[ThreadID]Timeline `json:"delegates"`
}

// Diagnostic records a non-fatal anomaly observed while materializing,
// surfaced for observability instead of failing the timeline.
type Diagnostic struct {
	Code    int    `json:"code"`
	EventID string `json:"event_id"`
	Seq     int64  `json:"seq"`
	Message string `json:"message"`
}
