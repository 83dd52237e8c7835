package cli

import (
	"bytes"
	"strings"
	"testing"
)

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var data, msgs bytes.Buffer
	out := &Output{jsonMode: jsonMode, w: &data, errW: &msgs}
	return out, &data, &msgs
}

func TestOutputTable(t *testing.T) {
	out, data, _ := newTestOutput(false)
	out.Table([]string{"ID", "STATUS"}, [][]string{{"j1", "PENDING"}})

	got := data.String()
	for _, want := range []string{"ID", "STATUS", "--", "j1", "PENDING"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output %q does not contain %q", got, want)
		}
	}
}

func TestOutputDetail(t *testing.T) {
	out, data, _ := newTestOutput(false)
	out.Detail([][2]string{
		{"JOB_ID", "j1"},
		{"STATUS", "SUCCEEDED"},
	}, nil)

	lines := strings.Split(strings.TrimSpace(data.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2: %q", len(lines), data.String())
	}
	if !strings.HasPrefix(lines[0], "JOB_ID") || !strings.Contains(lines[1], "SUCCEEDED") {
		t.Errorf("detail output = %q", data.String())
	}
}

func TestOutputDetailJSONMode(t *testing.T) {
	out, data, _ := newTestOutput(true)
	out.Detail([][2]string{{"ID", "x"}}, map[string]string{"id": "j1"})

	if !strings.Contains(data.String(), `"id": "j1"`) {
		t.Errorf("json output = %q", data.String())
	}
}

func TestOutputMessagesGoToStderr(t *testing.T) {
	out, data, msgs := newTestOutput(false)
	out.Success("done")
	out.Error("boom")

	if data.Len() != 0 {
		t.Errorf("stdout = %q, want empty", data.String())
	}
	if !strings.Contains(msgs.String(), "done") || !strings.Contains(msgs.String(), "Error: boom") {
		t.Errorf("stderr = %q", msgs.String())
	}
}
