package handler

import (
	"net/http"
	"time"

	"github.com/dreschagin/bench-history/internal/application/usecase"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/dreschagin/bench-history/internal/interfaces/http/middleware"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// TrendsAPIHandler обрабатывает API запросы трендов тестов
type TrendsAPIHandler struct {
	getTrendUC  *usecase.GetTrendUseCase
	maxDuration time.Duration
	logger      *logger.Logger
}

// NewTrendsAPIHandler создает новый handler
func NewTrendsAPIHandler(
	getTrendUC *usecase.GetTrendUseCase,
	maxDuration time.Duration,
	logger *logger.Logger,
) *TrendsAPIHandler {
	if maxDuration <= 0 {
		maxDuration = 90 * 24 * time.Hour
	}

	return &TrendsAPIHandler{
		getTrendUC:  getTrendUC,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

// GetTrend возвращает временной ряд одного теста
func (h *TrendsAPIHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	suite := r.URL.Query().Get("suite")
	testName := r.URL.Query().Get("test")
	durationStr := r.URL.Query().Get("duration")

	if suite == "" || testName == "" {
		http.Error(w, "Missing required parameters: suite, test", http.StatusBadRequest)
		return
	}

	duration := 30 * 24 * time.Hour
	if durationStr != "" {
		parsed, err := time.ParseDuration(durationStr)
		if err != nil {
			http.Error(w, "Invalid duration format", http.StatusBadRequest)
			return
		}
		duration = parsed
	}
	if duration <= 0 || duration > h.maxDuration {
		http.Error(w, "Duration out of allowed range", http.StatusBadRequest)
		return
	}

	timeRange, err := valueobject.NewTimeRangeFromDuration(duration)
	if err != nil {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return
	}

	trend, err := h.getTrendUC.Execute(r.Context(), suite, testName, timeRange)
	if err != nil {
		h.logger.Error("Failed to get trend", err)
		http.Error(w, "Failed to fetch trend", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, trend)
}
