package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/bench-history/internal/application/port"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogBatchBytes       = 1048576 // 1 MB per PutLogEvents request
	maxLogEventSize        = 256000  // 256 KB per event
	logEventOverheadBytes  = 26      // CloudWatch adds this per event when counting batch size
)

// Ingest-поля, которые поднимаются на верхний уровень JSON.
// CloudWatch Logs Insights тогда фильтрует по suite/commit без парсинга fields.
var promotedLogFields = []string{"suite", "run_id", "commit", "test"}

// LogsPublisherConfig holds configuration for CloudWatch logs publishing.
type LogsPublisherConfig struct {
	LogGroupName    string // CloudWatch log group name
	LogStreamName   string // Optional; defaults to a per-day ingest stream
	Region          string // AWS region
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
	BufferSize      int    // Buffer size before auto-flush
	FlushInterval   time.Duration
	AutoCreate      bool // Automatically create log group/stream if missing
}

// LogsPublisher ships service logs to AWS CloudWatch Logs in batches.
type LogsPublisher struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string
	autoCreate    bool

	buffer     []applicationPort.LogEntry
	bufferSize int
	mu         sync.Mutex

	sequenceToken *string // CloudWatch requires sequence tokens for ordering

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// defaultLogStreamName returns the per-day ingest stream.
// A stream per day keeps sequence-token contention away from old streams.
func defaultLogStreamName(now time.Time) string {
	return "ingest-" + now.UTC().Format("2006-01-02")
}

// NewLogsPublisher creates a new CloudWatch logs publisher.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.LogStreamName == "" {
		cfg.LogStreamName = defaultLogStreamName(time.Now())
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := &LogsPublisher{
		client:        cloudwatchlogs.NewFromConfig(awsCfg),
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		autoCreate:    cfg.AutoCreate,
		buffer:        make([]applicationPort.LogEntry, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushTicker:   time.NewTicker(cfg.FlushInterval),
		stopCh:        make(chan struct{}),
	}

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// Publish buffers a single log entry, flushing when the buffer fills up.
func (p *LogsPublisher) Publish(ctx context.Context, entry applicationPort.LogEntry) error {
	return p.PublishBatch(ctx, []applicationPort.LogEntry{entry})
}

// PublishBatch buffers multiple log entries.
func (p *LogsPublisher) PublishBatch(ctx context.Context, entries []applicationPort.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range entries {
		p.buffer = append(p.buffer, entry)

		if len(p.buffer) >= p.bufferSize {
			if err := p.flushLocked(ctx); err != nil {
				return fmt.Errorf("failed to flush buffer: %w", err)
			}
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered log entries.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushLocked(ctx)
}

// Close stops the background flush goroutine and flushes remaining logs.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			// Errors here are retried on the next tick
			_ = p.Flush(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushLocked publishes the buffer. Caller must hold p.mu.
func (p *LogsPublisher) flushLocked(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	// CloudWatch rejects batches that are not in chronological order
	sort.SliceStable(p.buffer, func(i, j int) bool {
		return p.buffer[i].Timestamp.Before(p.buffer[j].Timestamp)
	})

	events := make([]logtypes.InputLogEvent, 0, len(p.buffer))
	for _, entry := range p.buffer {
		// Malformed entries are dropped, the batch is still shipped
		if event, err := buildLogEvent(entry); err == nil {
			events = append(events, event)
		}
	}

	for _, chunk := range chunkLogEvents(events, maxLogEventsPerRequest, maxLogBatchBytes) {
		if err := p.putEventsWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// chunkLogEvents splits events into batches honoring both the event-count
// and the byte-size limits of PutLogEvents.
func chunkLogEvents(events []logtypes.InputLogEvent, maxCount, maxBytes int) [][]logtypes.InputLogEvent {
	var chunks [][]logtypes.InputLogEvent
	var current []logtypes.InputLogEvent
	currentBytes := 0

	for _, event := range events {
		eventBytes := logEventOverheadBytes
		if event.Message != nil {
			eventBytes += len(*event.Message)
		}

		if len(current) > 0 && (len(current) >= maxCount || currentBytes+eventBytes > maxBytes) {
			chunks = append(chunks, current)
			current = nil
			currentBytes = 0
		}

		current = append(current, event)
		currentBytes += eventBytes
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	return chunks
}

// putEventsWithRetry publishes one batch with sequence-token recovery and backoff.
func (p *LogsPublisher) putEventsWithRetry(ctx context.Context, events []logtypes.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		output, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		})
		if err == nil {
			p.sequenceToken = output.NextSequenceToken
			return nil
		}

		// Another writer advanced the stream: retry with the token CloudWatch expects
		var invalidSeq *logtypes.InvalidSequenceTokenException
		if errors.As(err, &invalidSeq) {
			p.sequenceToken = invalidSeq.ExpectedSequenceToken
			continue
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// buildLogEvent shapes a LogEntry into the JSON document the service ships.
// Well-known ingest fields move to the top level, the rest stay under "fields".
func buildLogEvent(entry applicationPort.LogEntry) (logtypes.InputLogEvent, error) {
	logData := map[string]interface{}{
		"time":    entry.Timestamp.Format(time.RFC3339Nano),
		"level":   string(entry.Level),
		"msg":     entry.Message,
		"service": "bench-history",
	}

	rest := make(map[string]interface{}, len(entry.Fields))
	for key, value := range entry.Fields {
		rest[key] = value
	}
	for _, key := range promotedLogFields {
		if value, ok := rest[key]; ok {
			logData[key] = value
			delete(rest, key)
		}
	}
	if len(rest) > 0 {
		logData["fields"] = rest
	}

	messageJSON, err := json.Marshal(logData)
	if err != nil {
		return logtypes.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(messageJSON)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return logtypes.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

// ensureLogGroupAndStream creates the log group and stream if they don't exist.
func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var alreadyExists *logtypes.ResourceAlreadyExistsException
	return errors.As(err, &alreadyExists)
}
