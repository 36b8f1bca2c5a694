package domain

import "testing"

func TestThreadEvent_Validate(t *testing.T) {
	good := ThreadEvent{
		ID:       "ev-1",
		ThreadID: "main",
		Kind:     KindUserMessage,
		Message:  &MessagePayload{Text: "hi"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		name string
		ev   ThreadEvent
	}{
		{"missing id", ThreadEvent{ThreadID: "main", Kind: KindUserMessage, Message: &MessagePayload{}}},
		{"unknown kind", ThreadEvent{ID: "e", ThreadID: "main", Kind: "telemetry"}},
		{"message without payload", ThreadEvent{ID: "e", ThreadID: "main", Kind: KindAgentMessage}},
		{"tool call without call id", ThreadEvent{ID: "e", ThreadID: "main", Kind: KindToolCall, ToolCall: &ToolCallPayload{ToolName: "bash"}}},
		{"tool result without payload", ThreadEvent{ID: "e", ThreadID: "main", Kind: KindToolResult}},
	}
	for _, c := range cases {
		if err := c.ev.Validate(); err == nil {
			t.Errorf("%s: expected error, got nil", c.name)
		}
	}
}

func TestThreadEvent_PayloadRoundTrip(t *testing.T) {
	ev := ThreadEvent{
		ID:       "ev-7",
		ThreadID: "main",
		Kind:     KindToolCall,
		ToolCall: &ToolCallPayload{
			CallID:            "t7",
			ToolName:          "delegate",
			Args:              `{"prompt":"review the diff"}`,
			DelegatedThreadID: "main.2",
		},
	}

	data, err := ev.PayloadJSON()
	if err != nil {
		t.Fatalf("PayloadJSON: %v", err)
	}

	decoded := ThreadEvent{ID: ev.ID, ThreadID: ev.ThreadID, Kind: ev.Kind}
	if err := decoded.DecodePayload(data); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if decoded.ToolCall == nil {
		t.Fatal("ToolCall payload not decoded")
	}
	if decoded.ToolCall.DelegatedThreadID != "main.2" {
		t.Errorf("DelegatedThreadID = %q, want main.2", decoded.ToolCall.DelegatedThreadID)
	}
	if decoded.ToolCall.ToolName != "delegate" {
		t.Errorf("ToolName = %q, want delegate", decoded.ToolCall.ToolName)
	}
}

func TestThreadEvent_DecodePayload_UnknownKind(t *testing.T) {
	ev := ThreadEvent{ID: "e", ThreadID: "main", Kind: "telemetry"}
	if err := ev.DecodePayload("{}"); err == nil {
		t.Error("expected error for unknown kind, got nil")
	}
}
