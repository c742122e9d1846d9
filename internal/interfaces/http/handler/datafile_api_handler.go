package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/application/usecase"
	"github.com/dreschagin/bench-history/internal/infrastructure/observability/promexport"
	"github.com/dreschagin/bench-history/internal/interfaces/http/middleware"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// DataFileAPIHandler обрабатывает выгрузку и импорт data-файла дашборда
type DataFileAPIHandler struct {
	exportUC        *usecase.ExportDataFileUseCase
	importUC        *usecase.ImportDataFileUseCase
	maxPayloadBytes int64
	metrics         *promexport.Metrics
	logger          *logger.Logger
}

// NewDataFileAPIHandler создает новый handler
func NewDataFileAPIHandler(
	exportUC *usecase.ExportDataFileUseCase,
	importUC *usecase.ImportDataFileUseCase,
	maxPayloadBytes int64,
	metrics *promexport.Metrics,
	logger *logger.Logger,
) *DataFileAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 16 << 20
	}

	return &DataFileAPIHandler{
		exportUC:        exportUC,
		importUC:        importUC,
		maxPayloadBytes: maxPayloadBytes,
		metrics:         metrics,
		logger:          logger,
	}
}

// ServeDataFile отдает собранный data.js для дашборда
func (h *DataFileAPIHandler) ServeDataFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.exportUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to assemble data file", err)
		http.Error(w, "Failed to assemble data file", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.ExportsTotal.Inc()
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(result.Body)
}

// Export собирает data-файл и выгружает его в объектное хранилище
func (h *DataFileAPIHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.exportUC.ExecuteWithUpload(r.Context())
	if err != nil {
		h.logger.Error("Failed to export data file", err)
		http.Error(w, "Failed to export data file", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.ExportsTotal.Inc()
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"snapshot_id": result.SnapshotID,
		"url":         result.URL,
		"suites":      result.SuiteCount,
		"runs":        result.RunCount,
		"bytes":       len(result.Body),
	})
}

// Import загружает историю из существующего data-файла
func (h *DataFileAPIHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxPayloadBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	result, err := h.importUC.Execute(r.Context(), body)
	if err != nil {
		h.logger.Warn("Data file import rejected", "error", err.Error())
		http.Error(w, "Invalid data file: "+err.Error(), http.StatusBadRequest)
		return
	}

	if h.metrics != nil {
		h.metrics.ImportsTotal.Inc()
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"suites":   result.SuiteCount,
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
}

// ListSnapshots возвращает страницу индекса выгруженных файлов
func (h *DataFileAPIHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := port.SnapshotListQuery{
		Cursor: r.URL.Query().Get("cursor"),
	}

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

	page, err := h.exportUC.ListSnapshots(r.Context(), query)
	if err != nil {
		h.logger.Error("Failed to list snapshots", err)
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, page)
}
