package events

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogConfig configures the logging handler
type LogConfig struct {
	// Writer is where logs are written (default: os.Stderr)
	Writer io.Writer

	// IncludePayload includes event payload in log output
	IncludePayload bool

	// TimeFormat is the timestamp format (default: RFC3339)
	TimeFormat string
}

// LogHandler returns a handler that logs events to the configured writer
// Format: [event.type] repo error="..."
func LogHandler(cfg LogConfig) Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	return func(e Event) {
		var buf strings.Builder
		buf.WriteString("[")
		buf.WriteString(string(e.Type))
		buf.WriteString("]")

		if e.Repo != "" {
			buf.WriteString(" ")
			buf.WriteString(e.Repo)
		}
		if e.Error != "" {
			fmt.Fprintf(&buf, " error=%q", e.Error)
		}
		if cfg.IncludePayload && e.Payload != nil {
			fmt.Fprintf(&buf, " payload=%v", e.Payload)
		}
		buf.WriteString("\n")

		fmt.Fprint(cfg.Writer, buf.String())
	}
}

// FilterHandler wraps a handler so it only receives the listed event types.
func FilterHandler(h Handler, types ...EventType) Handler {
	want := make(map[EventType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	return func(e Event) {
		if want[e.Type] {
			h(e)
		}
	}
}
