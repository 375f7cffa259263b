package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
)

func TestAuthEventTaskRoundTrip(t *testing.T) {
	payload := AuthEventPayload{
		Kind:      AuthEventLogin,
		AccountID: 7,
		Email:     "jane@x.com",
		ClientID:  "203.0.113.7",
		At:        time.Now().UTC(),
	}
	task, err := NewAuthEventTask(payload)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskTypeAuthEvent {
		t.Fatalf("unexpected task type: %s", task.Type())
	}

	var decoded AuthEventPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.AccountID != 7 || decoded.Kind != AuthEventLogin {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestAuthEventHandlerLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := AuthEventHandler(logger)

	task, err := NewAuthEventTask(AuthEventPayload{Kind: AuthEventSignout, ClientID: "ip1", At: time.Now()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(buf.String(), "signout") {
		t.Fatalf("expected event kind in log output, got: %s", buf.String())
	}
}

func TestAuthEventHandlerSkipsMalformedPayload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := AuthEventHandler(logger)

	task := asynq.NewTask(TaskTypeAuthEvent, []byte("{not json"))
	err := handler(context.Background(), task)
	if err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if err != asynq.SkipRetry {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
