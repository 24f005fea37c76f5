package events

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	handler := LogHandler(LogConfig{Writer: &buf})

	event := Event{
		Type: RepoCompleted,
		Repo: "/srv/repos/api",
	}
	handler(event)

	output := buf.String()
	if !strings.Contains(output, "[repo.completed]") {
		t.Errorf("expected output to contain [repo.completed], got: %s", output)
	}
	if !strings.Contains(output, "/srv/repos/api") {
		t.Errorf("expected output to contain repo path, got: %s", output)
	}
}

func TestLogHandler_DefaultWriter(t *testing.T) {
	// When Writer is nil, it should default to os.Stderr.
	// We can't easily test os.Stderr output, but we can verify no panic.
	handler := LogHandler(LogConfig{})
	handler(Event{Type: JobStarted})
}

func TestLogHandler_IncludePayload(t *testing.T) {
	var buf bytes.Buffer
	handler := LogHandler(LogConfig{
		Writer:         &buf,
		IncludePayload: true,
	})

	event := Event{
		Type:    RepoCompleted,
		Repo:    "/srv/repos/api",
		Payload: map[string]string{"outcome": "conflict"},
	}
	handler(event)

	if !strings.Contains(buf.String(), "payload=") {
		t.Errorf("expected output to contain payload=, got: %s", buf.String())
	}
}

func TestLogHandler_Error(t *testing.T) {
	var buf bytes.Buffer
	handler := LogHandler(LogConfig{Writer: &buf})

	handler(Event{Type: JobAborted, Error: "git binary not found"})

	if !strings.Contains(buf.String(), `error="git binary not found"`) {
		t.Errorf("expected error in output, got: %s", buf.String())
	}
}

func TestFilterHandler(t *testing.T) {
	var got []EventType
	h := FilterHandler(func(e Event) {
		got = append(got, e.Type)
	}, RepoCompleted, JobFinished)

	h(Event{Type: RepoStarted})
	h(Event{Type: RepoCompleted})
	h(Event{Type: JobFinished})
	h(Event{Type: ScanWarning})

	if len(got) != 2 || got[0] != RepoCompleted || got[1] != JobFinished {
		t.Errorf("unexpected filtered events: %v", got)
	}
}
