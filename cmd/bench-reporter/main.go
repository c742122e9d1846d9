package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dreschagin/bench-history/internal/infrastructure/envinfo"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// bench-reporter отправляет результаты бенчмарков из CI на сервер истории.
// Формат входного файла - JSON-массив измерений:
//
//	[{"name": "...", "value": 123.4, "unit": "iter/sec", "range": "± 5.6", "group": "engine"}]
//
// Дескриптор машины (cpu, os, arch) собирается автоматически.

type measurementPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Range string  `json:"range,omitempty"`
	Group string  `json:"group,omitempty"`
	Extra string  `json:"extra,omitempty"`
}

type commitPayload struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Author    string    `json:"author,omitempty"`
	Committer string    `json:"committer,omitempty"`
}

type cpuPayload struct {
	Model         string  `json:"model,omitempty"`
	Speed         float64 `json:"speed"`
	PhysicalCores int     `json:"physicalCores"`
	LogicalCores  int     `json:"logicalCores"`
}

type runPayload struct {
	Suite      string               `json:"suite"`
	Commit     commitPayload        `json:"commit"`
	CPU        cpuPayload           `json:"cpu"`
	Extra      map[string]string    `json:"extra,omitempty"`
	RecordedAt time.Time            `json:"recorded_at,omitempty"`
	Benches    []measurementPayload `json:"benches"`
}

type ingestResponse struct {
	RunID       string `json:"run_id"`
	Regressions []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Details struct {
			TestName string `json:"test_name"`
		} `json:"details"`
	} `json:"regressions"`
}

type extraFlags map[string]string

func (e extraFlags) String() string { return "" }

func (e extraFlags) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	e[key] = val
	return nil
}

func main() {
	serverURL := flag.String("server", getEnv("BENCH_SERVER_URL", "http://localhost:8080"), "history server base URL")
	token := flag.String("token", os.Getenv("BENCH_AUTH_TOKEN"), "bearer token for the ingest API")
	suite := flag.String("suite", "", "benchmark suite name (required)")
	benchesPath := flag.String("benches", "", "path to JSON file with measurements (required)")
	commitID := flag.String("commit-id", os.Getenv("GITHUB_SHA"), "full commit SHA")
	commitMessage := flag.String("commit-message", "", "commit message")
	commitURL := flag.String("commit-url", "", "commit web URL")
	commitTimestamp := flag.String("commit-timestamp", "", "commit timestamp, RFC3339 (default: now)")
	commitAuthor := flag.String("commit-author", "", "commit author name")
	commitCommitter := flag.String("commit-committer", "", "committer name")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	failOnRegression := flag.Bool("fail-on-regression", false, "exit with code 2 if the server reports a critical regression")

	extra := make(extraFlags)
	flag.Var(extra, "extra", "extra key=value attached to the run (repeatable)")
	flag.Parse()

	log := logger.New(os.Getenv("LOG_LEVEL"))

	if *suite == "" || *benchesPath == "" || *commitID == "" {
		fmt.Fprintln(os.Stderr, "required flags: -suite, -benches, -commit-id")
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*benchesPath)
	if err != nil {
		log.Error("Failed to read benches file", err, "path", *benchesPath)
		os.Exit(1)
	}

	var benches []measurementPayload
	if err := json.Unmarshal(raw, &benches); err != nil {
		log.Error("Failed to parse benches file", err, "path", *benchesPath)
		os.Exit(1)
	}
	if len(benches) == 0 {
		log.Error("Benches file contains no measurements", nil, "path", *benchesPath)
		os.Exit(1)
	}

	commitTime := time.Now().UTC()
	if *commitTimestamp != "" {
		parsed, err := time.Parse(time.RFC3339, *commitTimestamp)
		if err != nil {
			log.Error("Invalid commit timestamp", err, "value", *commitTimestamp)
			os.Exit(1)
		}
		commitTime = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Дескриптор машины собирается локально, чтобы прогоны с разных
	// CI-раннеров можно было отличить по cpu и extra.
	probe := envinfo.NewHostProbe()
	env, err := probe.Describe(ctx)
	if err != nil {
		log.Warn("Failed to describe host environment, sending run without cpu info", "error", err.Error())
	}

	payload := runPayload{
		Suite: *suite,
		Commit: commitPayload{
			ID:        *commitID,
			Message:   *commitMessage,
			Timestamp: commitTime,
			URL:       *commitURL,
			Author:    *commitAuthor,
			Committer: *commitCommitter,
		},
		CPU: cpuPayload{
			Model:         env.CPU.Model(),
			Speed:         env.CPU.SpeedMHz(),
			PhysicalCores: env.CPU.PhysicalCores(),
			LogicalCores:  env.CPU.LogicalCores(),
		},
		Extra:      mergeExtra(env.Extra, extra),
		RecordedAt: time.Now().UTC(),
		Benches:    benches,
	}

	result, err := postRun(ctx, *serverURL, *token, payload)
	if err != nil {
		log.Error("Failed to submit run", err, "suite", *suite)
		os.Exit(1)
	}

	log.Info("Run submitted",
		"run_id", result.RunID,
		"suite", *suite,
		"benches", len(benches),
		"regressions", len(result.Regressions))

	critical := false
	for _, reg := range result.Regressions {
		log.Warn("Regression reported", "test", reg.Details.TestName, "level", reg.Level, "message", reg.Message)
		if reg.Level == "critical" {
			critical = true
		}
	}

	if critical && *failOnRegression {
		os.Exit(2)
	}
}

func postRun(ctx context.Context, serverURL, token string, payload runPayload) (*ingestResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run payload: %w", err)
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/api/v1/runs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("run already recorded for this commit")
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result ingestResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

func mergeExtra(base map[string]string, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
