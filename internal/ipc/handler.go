package ipc

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/anthropics/threadline/internal/compose"
	"github.com/anthropics/threadline/internal/domain"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Session *compose.Session
}

// AppendBatchRequest is the body for POST /api/v1/events/batch.
type AppendBatchRequest struct {
	Events []domain.ThreadEvent `json:"events"`
}

// CompactRequest is the body for POST /api/v1/threads/{threadID}/compact.
type CompactRequest struct {
	UptoSeq int64 `json:"upto_seq"`
}

// ThreadsResponse is the body for GET /api/v1/threads.
type ThreadsResponse struct {
	Root    domain.ThreadID   `json:"root"`
	Threads []domain.ThreadID `json:"threads"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AppendEvent handles POST /api/v1/events. Events submitted without an id
// get one assigned; the stored event, sequence included, is echoed back.
func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var event domain.ThreadEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := event.Validate(); err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.Session.Append(r.Context(), event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// AppendBatch handles POST /api/v1/events/batch. Duplicate ids inside the
// batch are skipped; the response lists what was actually stored.
func (h *Handler) AppendBatch(w http.ResponseWriter, r *http.Request) {
	var req AppendBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "events is required"})
		return
	}
	for i := range req.Events {
		if req.Events[i].ID == "" {
			req.Events[i].ID = uuid.NewString()
		}
		if err := req.Events[i].Validate(); err != nil {
			writeError(w, err)
			return
		}
	}

	stored, err := h.Session.AppendBatch(r.Context(), req.Events)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// ListThreads handles GET /api/v1/threads.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads := h.Session.Threads()
	if threads == nil {
		threads = []domain.ThreadID{}
	}
	writeJSON(w, http.StatusOK, ThreadsResponse{
		Root:    h.Session.Root(),
		Threads: threads,
	})
}

// ListEvents handles GET /api/v1/threads/{threadID}/events?since_seq=N.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	threadID := domain.ThreadID(r.PathValue("threadID"))
	events, err := h.Session.Events(threadID)
	if err != nil {
		writeError(w, err)
		return
	}

	sinceSeq := int64(0)
	if s := r.URL.Query().Get("since_seq"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			sinceSeq = parsed
		}
	}
	if sinceSeq > 0 {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Seq > sinceSeq {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []domain.ThreadEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetTimeline handles GET /api/v1/threads/{threadID}/timeline.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	threadID := domain.ThreadID(r.PathValue("threadID"))
	tl, ok := h.Session.Timeline(threadID)
	if !ok {
		writeError(w, domain.NewCoreError(
			domain.ErrThreadNotFound.Code,
			"no timeline for thread "+string(threadID),
		))
		return
	}
	if tl.Items == nil {
		tl.Items = []domain.TimelineItem{}
	}
	writeJSON(w, http.StatusOK, tl)
}

// CompactThread handles POST /api/v1/threads/{threadID}/compact.
func (h *Handler) CompactThread(w http.ResponseWriter, r *http.Request) {
	threadID := domain.ThreadID(r.PathValue("threadID"))
	var req CompactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if req.UptoSeq <= 0 {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "upto_seq must be positive"})
		return
	}

	if err := h.Session.Compact(r.Context(), threadID, req.UptoSeq); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles GET /api/v1/timelines.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if coreErr, ok := domain.AsCoreError(err); ok {
		status := http.StatusInternalServerError
		switch coreErr.Code {
		case domain.ErrThreadNotFound.Code:
			status = http.StatusNotFound
		case domain.ErrDuplicateEventID.Code:
			status = http.StatusConflict
		case domain.ErrMalformedEvent.Code, domain.ErrInvalidThreadID.Code, domain.ErrBadCheckpoint.Code:
			status = http.StatusBadRequest
		}
		writeJSON(w, status, APIError{Code: coreErr.Code, Message: coreErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: 500, Message: err.Error()})
}
