package streamevent

import "testing"

func TestConstructors_SetKindAndPayload(t *testing.T) {
	if ev := Content("hi"); ev.Kind != KindContent || ev.Content == nil || ev.Content.Text != "hi" {
		t.Errorf("Content() = %+v", ev)
	}
	if ev := ToolCall("1", "search", "function", map[string]any{"q": "go"}); ev.Kind != KindToolCall || ev.ToolCall.Name != "search" {
		t.Errorf("ToolCall() = %+v", ev)
	}
	if ev := ToolResult("1", "search", "ok", false); ev.Kind != KindToolResult || ev.ToolResult.IsError {
		t.Errorf("ToolResult() = %+v", ev)
	}
	if ev := Session("u1", "s1", "u1:s1"); ev.Kind != KindSession || ev.Session.ThreadID != "u1:s1" {
		t.Errorf("Session() = %+v", ev)
	}
	if ev := Done(); ev.Kind != KindDone {
		t.Errorf("Done() = %+v", ev)
	}
	if ev := Err("boom"); ev.Kind != KindError || ev.Error.Message != "boom" {
		t.Errorf("Err() = %+v", ev)
	}
}

func TestTruncateResult(t *testing.T) {
	short := "hello"
	if got := TruncateResult(short); got != short {
		t.Errorf("expected short string unchanged, got %q", got)
	}

	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	got := TruncateResult(string(long))
	if len(got) != toolResultTruncateLimit {
		t.Errorf("expected truncated length %d, got %d", toolResultTruncateLimit, len(got))
	}
}
