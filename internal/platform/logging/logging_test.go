package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/config"
)

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("stage moved", "job_candidate_id", "jc-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["job_candidate_id"] != "jc-1" {
		t.Fatalf("expected attribute in output, got %+v", entry)
	}
}

func TestNew_TextFormatDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "debug", Format: "text"}, &buf)

	logger.Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected text output with debug message, got %q", buf.String())
	}
}
