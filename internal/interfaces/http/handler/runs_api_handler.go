package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dreschagin/bench-history/internal/application/usecase"
	"github.com/dreschagin/bench-history/internal/infrastructure/observability/promexport"
	"github.com/dreschagin/bench-history/internal/interfaces/http/middleware"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// RunsAPIHandler обрабатывает API запросы для прогонов бенчмарков
type RunsAPIHandler struct {
	ingestRunUC      *usecase.IngestRunUseCase
	getRunHistoryUC  *usecase.GetRunHistoryUseCase
	getLatestRunsUC  *usecase.GetLatestRunsUseCase
	maxPayloadBytes  int64
	metrics          *promexport.Metrics
	logger           *logger.Logger
}

type ingestMeasurementRequest struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Range string  `json:"range,omitempty"`
	Group string  `json:"group,omitempty"`
	Extra string  `json:"extra,omitempty"`
}

type ingestCommitRequest struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Author    string    `json:"author,omitempty"`
	Committer string    `json:"committer,omitempty"`
}

type ingestCPURequest struct {
	Model         string  `json:"model,omitempty"`
	Speed         float64 `json:"speed"`
	PhysicalCores int     `json:"physicalCores"`
	LogicalCores  int     `json:"logicalCores"`
}

type ingestRunRequest struct {
	Suite      string                     `json:"suite"`
	Commit     ingestCommitRequest        `json:"commit"`
	CPU        ingestCPURequest           `json:"cpu"`
	Extra      map[string]string          `json:"extra,omitempty"`
	RecordedAt time.Time                  `json:"recorded_at,omitempty"`
	Benches    []ingestMeasurementRequest `json:"benches"`
}

// NewRunsAPIHandler создает новый handler
func NewRunsAPIHandler(
	ingestRunUC *usecase.IngestRunUseCase,
	getRunHistoryUC *usecase.GetRunHistoryUseCase,
	getLatestRunsUC *usecase.GetLatestRunsUseCase,
	maxPayloadBytes int64,
	metrics *promexport.Metrics,
	logger *logger.Logger,
) *RunsAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 1 << 20
	}

	return &RunsAPIHandler{
		ingestRunUC:     ingestRunUC,
		getRunHistoryUC: getRunHistoryUC,
		getLatestRunsUC: getLatestRunsUC,
		maxPayloadBytes: maxPayloadBytes,
		metrics:         metrics,
		logger:          logger,
	}
}

// HandleRuns диспетчеризует /api/v1/runs: POST - прием, GET - последние прогоны
func (h *RunsAPIHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingest(w, r)
	case http.MethodGet:
		h.latest(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ingest принимает новый прогон
func (h *RunsAPIHandler) ingest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)

	var req ingestRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if h.metrics != nil {
			h.metrics.RunsRejected.Inc()
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd := usecase.IngestRunCommand{
		Suite: req.Suite,
		Commit: usecase.CommitInput{
			ID:        req.Commit.ID,
			Message:   req.Commit.Message,
			Timestamp: req.Commit.Timestamp,
			URL:       req.Commit.URL,
			Author:    req.Commit.Author,
			Committer: req.Commit.Committer,
		},
		CPU: usecase.CPUInput{
			Model:         req.CPU.Model,
			SpeedMHz:      req.CPU.Speed,
			PhysicalCores: req.CPU.PhysicalCores,
			LogicalCores:  req.CPU.LogicalCores,
		},
		Extra:      req.Extra,
		RecordedAt: req.RecordedAt,
		Benches:    make([]usecase.MeasurementInput, 0, len(req.Benches)),
	}
	for _, b := range req.Benches {
		cmd.Benches = append(cmd.Benches, usecase.MeasurementInput{
			Name:  b.Name,
			Value: b.Value,
			Unit:  b.Unit,
			Range: b.Range,
			Group: b.Group,
			Extra: b.Extra,
		})
	}

	result, err := h.ingestRunUC.Execute(r.Context(), cmd)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RunsRejected.Inc()
		}
		if errors.Is(err, usecase.ErrDuplicateRun) {
			http.Error(w, "Run already ingested", http.StatusConflict)
			return
		}
		h.logger.Warn("Run rejected", "error", err.Error())
		http.Error(w, "Invalid run: "+err.Error(), http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.RunsIngested.Inc()
		for _, reg := range result.Regressions {
			h.metrics.RegressionsDetected.WithLabelValues(reg.Level).Inc()
		}
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"run_id":      result.RunID,
		"regressions": result.Regressions,
	})
}

// latest возвращает последний прогон каждого набора
func (h *RunsAPIHandler) latest(w http.ResponseWriter, r *http.Request) {
	runs, err := h.getLatestRunsUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to get latest runs", err)
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, runs)
}

// GetHistory возвращает историю прогонов набора
func (h *RunsAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	suite := r.URL.Query().Get("suite")
	if suite == "" {
		http.Error(w, "Missing required parameter: suite", http.StatusBadRequest)
		return
	}

	query := usecase.GetRunHistoryQuery{Suite: suite}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		query.Limit = limit
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			http.Error(w, "Invalid from timestamp", http.StatusBadRequest)
			return
		}
		query.From = from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			http.Error(w, "Invalid to timestamp", http.StatusBadRequest)
			return
		}
		query.To = to
	}

	runs, err := h.getRunHistoryUC.Execute(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to get run history", err)
		http.Error(w, "Failed to fetch run history", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, runs)
}

// GetSuites возвращает список известных наборов
func (h *RunsAPIHandler) GetSuites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	suites, err := h.getLatestRunsUC.Suites(r.Context())
	if err != nil {
		h.logger.Error("Failed to list suites", err)
		http.Error(w, "Failed to fetch suites", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"suites": suites,
	})
}
