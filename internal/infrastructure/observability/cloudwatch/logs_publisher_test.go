package cloudwatch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	logtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/bench-history/internal/application/port"
)

func decodeLogEvent(t *testing.T, event logtypes.InputLogEvent) map[string]interface{} {
	t.Helper()

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}
	return logData
}

func TestBuildLogEvent_PromotesIngestFields(t *testing.T) {
	timestamp := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   "Run ingested",
		Fields: map[string]interface{}{
			"suite":        "pytest-benchmarks",
			"run_id":       "a2b9",
			"commit":       "deadbee",
			"measurements": 12,
		},
	}

	event, err := buildLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to build log event: %v", err)
	}

	if event.Timestamp == nil || *event.Timestamp != timestamp.UnixMilli() {
		t.Errorf("Expected Timestamp=%d, got %v", timestamp.UnixMilli(), event.Timestamp)
	}

	logData := decodeLogEvent(t, event)

	if logData["service"] != "bench-history" {
		t.Errorf("Expected service=bench-history, got %v", logData["service"])
	}
	if logData["level"] != string(applicationPort.LogLevelInfo) {
		t.Errorf("Expected level=INFO, got %v", logData["level"])
	}
	if logData["msg"] != "Run ingested" {
		t.Errorf("Expected msg='Run ingested', got %v", logData["msg"])
	}

	// suite/run_id/commit должны быть на верхнем уровне
	if logData["suite"] != "pytest-benchmarks" {
		t.Errorf("Expected top-level suite, got %v", logData["suite"])
	}
	if logData["run_id"] != "a2b9" {
		t.Errorf("Expected top-level run_id, got %v", logData["run_id"])
	}
	if logData["commit"] != "deadbee" {
		t.Errorf("Expected top-level commit, got %v", logData["commit"])
	}

	fields, ok := logData["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected remaining fields under 'fields'")
	}
	if count, ok := fields["measurements"].(float64); !ok || count != 12 {
		t.Errorf("Expected fields.measurements=12, got %v", fields["measurements"])
	}
	if _, promoted := fields["suite"]; promoted {
		t.Error("Expected suite to be removed from nested fields")
	}
}

func TestBuildLogEvent_NoFields(t *testing.T) {
	entry := applicationPort.LogEntry{
		Timestamp: time.Now(),
		Level:     applicationPort.LogLevelError,
		Message:   "Error occurred",
	}

	event, err := buildLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to build log event: %v", err)
	}

	logData := decodeLogEvent(t, event)

	if logData["level"] != string(applicationPort.LogLevelError) {
		t.Errorf("Expected level=ERROR, got %v", logData["level"])
	}
	if _, ok := logData["fields"]; ok {
		t.Error("Expected no 'fields' key for an entry without fields")
	}
}

func TestBuildLogEvent_Truncation(t *testing.T) {
	entry := applicationPort.LogEntry{
		Timestamp: time.Now(),
		Level:     applicationPort.LogLevelInfo,
		Message:   strings.Repeat("x", maxLogEventSize+1000),
	}

	event, err := buildLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to build log event: %v", err)
	}

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}
	if len(*event.Message) > maxLogEventSize {
		t.Errorf("Expected message truncated to %d bytes, got %d", maxLogEventSize, len(*event.Message))
	}
	if !strings.HasSuffix(*event.Message, "...") {
		t.Error("Expected truncation marker '...' at end of message")
	}
}

func TestChunkLogEvents(t *testing.T) {
	makeEvent := func(size int) logtypes.InputLogEvent {
		return logtypes.InputLogEvent{
			Message:   aws.String(strings.Repeat("a", size)),
			Timestamp: aws.Int64(time.Now().UnixMilli()),
		}
	}

	t.Run("respects count limit", func(t *testing.T) {
		events := make([]logtypes.InputLogEvent, 5)
		for i := range events {
			events[i] = makeEvent(10)
		}

		chunks := chunkLogEvents(events, 2, maxLogBatchBytes)
		if len(chunks) != 3 {
			t.Fatalf("Expected 3 chunks, got %d", len(chunks))
		}
		if len(chunks[0]) != 2 || len(chunks[1]) != 2 || len(chunks[2]) != 1 {
			t.Errorf("Unexpected chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
		}
	})

	t.Run("respects byte limit", func(t *testing.T) {
		// Два события по 100 байт + overhead не влезают в 150 байт
		events := []logtypes.InputLogEvent{makeEvent(100), makeEvent(100)}

		chunks := chunkLogEvents(events, maxLogEventsPerRequest, 150)
		if len(chunks) != 2 {
			t.Fatalf("Expected 2 chunks, got %d", len(chunks))
		}
	})

	t.Run("oversized single event still ships", func(t *testing.T) {
		events := []logtypes.InputLogEvent{makeEvent(500)}

		chunks := chunkLogEvents(events, maxLogEventsPerRequest, 100)
		if len(chunks) != 1 || len(chunks[0]) != 1 {
			t.Fatalf("Expected single chunk with single event, got %d chunks", len(chunks))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if chunks := chunkLogEvents(nil, 10, 100); len(chunks) != 0 {
			t.Errorf("Expected no chunks, got %d", len(chunks))
		}
	})
}

func TestDefaultLogStreamName(t *testing.T) {
	now := time.Date(2026, 8, 30, 23, 59, 0, 0, time.FixedZone("MSK", 3*3600))

	// Дата берется в UTC, чтобы все инстансы писали в один stream
	if got := defaultLogStreamName(now); got != "ingest-2026-08-30" {
		t.Errorf("Expected ingest-2026-08-30, got %s", got)
	}
}
