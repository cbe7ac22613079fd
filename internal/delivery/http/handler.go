package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricespy/backend/internal/domain"
	"github.com/pricespy/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	priceService *usecase.PriceService
	logService   *usecase.ExtractionLogService
}

// NewHandler creates a new HTTP handler
func NewHandler(priceService *usecase.PriceService, logService *usecase.ExtractionLogService) *Handler {
	return &Handler{
		priceService: priceService,
		logService:   logService,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricespy-backend",
		"version": "1.0.0",
	})
}

// ListUnits returns every unit token the converter accepts
func (h *Handler) ListUnits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"units": usecase.KnownUnits(),
	})
}

// PackagingRequest is packaging given either as fields or as shorthand text
type PackagingRequest struct {
	QuantitySize float64 `json:"quantity_size"`
	QuantityUnit string  `json:"quantity_unit"`
	ItemsPerLot  int     `json:"items_per_lot"`
	Text         string  `json:"text"`
}

// ProcessExtractionRequest is the request body for processing one extraction
type ProcessExtractionRequest struct {
	TrackedItemID int64            `json:"tracked_item_id" binding:"required,gt=0"`
	Raw           map[string]any   `json:"raw"`
	Packaging     PackagingRequest `json:"packaging"`
	TargetPrice   *float64         `json:"target_price"`
	TargetUnit    string           `json:"target_unit"`
}

// ProcessExtraction handles POST /api/v1/extractions/process
func (h *Handler) ProcessExtraction(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Price service not configured",
		})
		return
	}

	var req ProcessExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	packaging, err := req.Packaging.toSpec()
	if err != nil {
		respondError(c, &domain.ProcessError{Stage: domain.StagePackaging, Err: err})
		return
	}

	result, err := h.priceService.Process(c.Request.Context(), usecase.ProcessRequest{
		TrackedItemID: req.TrackedItemID,
		Raw:           domain.RawExtraction(req.Raw),
		Packaging:     packaging,
		Target:        domain.NewTargetSpec(req.TargetPrice, req.TargetUnit),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompareRequest is the request body for a stateless comparison
type CompareRequest struct {
	Current     *domain.ValidatedPriceRecord `json:"current" binding:"required"`
	Previous    *domain.ValidatedPriceRecord `json:"previous"`
	Packaging   *PackagingRequest            `json:"packaging"`
	TargetPrice *float64                     `json:"target_price"`
	TargetUnit  string                       `json:"target_unit"`
}

// ComparePrices handles POST /api/v1/compare. It compares two already
// validated records without touching stored history.
func (h *Handler) ComparePrices(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var unitPrice *domain.VolumePrice
	if req.Packaging != nil && req.Current.Price > 0 {
		packaging, err := req.Packaging.toSpec()
		if err != nil {
			respondError(c, &domain.ProcessError{Stage: domain.StagePackaging, Err: err})
			return
		}
		vp, err := usecase.ComputeUnitPrice(req.Current.Price, packaging)
		if err != nil {
			respondError(c, &domain.ProcessError{Stage: domain.StagePackaging, Err: err})
			return
		}
		unitPrice = &vp
	}

	comparison := usecase.Compare(req.Current, req.Previous, domain.NewTargetSpec(req.TargetPrice, req.TargetUnit), unitPrice)
	c.JSON(http.StatusOK, gin.H{
		"comparison":   comparison,
		"volume_price": unitPrice,
	})
}

// GetHistory handles GET /api/v1/items/:id/history
func (h *Handler) GetHistory(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Price service not configured"})
		return
	}

	id, ok := parseItemID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.priceService.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tracked_item_id": id,
		"count":           len(records),
		"records":         records,
	})
}

// GetLatest handles GET /api/v1/items/:id/latest
func (h *Handler) GetLatest(c *gin.Context) {
	if h.priceService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Price service not configured"})
		return
	}

	id, ok := parseItemID(c)
	if !ok {
		return
	}

	record, err := h.priceService.Latest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListLogs handles GET /api/v1/logs. Supported query parameters: status,
// item_id, start_date and end_date (YYYY-MM-DD, inclusive), limit, offset.
func (h *Handler) ListLogs(c *gin.Context) {
	if h.logService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Extraction log not configured"})
		return
	}

	filter := domain.ExtractionLogFilter{Status: c.Query("status")}
	var err error
	if filter.TrackedItemID, err = queryInt64(c, "item_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Since, err = queryDate(c, "start_date"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Until, err = queryDate(c, "end_date"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !filter.Until.IsZero() {
		filter.Until = filter.Until.AddDate(0, 0, 1)
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := queryInt64(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Limit, filter.Offset = int(limit), int(offset)

	logs, err := h.logService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"logs":  logs,
	})
}

// LogStats handles GET /api/v1/logs/stats. Without a since date the
// statistics cover the current UTC day.
func (h *Handler) LogStats(c *gin.Context) {
	if h.logService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Extraction log not configured"})
		return
	}

	since, err := queryDate(c, "since")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if since.IsZero() {
		since = time.Now().UTC().Truncate(24 * time.Hour)
	}

	stats, err := h.logService.Stats(c.Request.Context(), since)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since": since.Format(dateLayout),
		"stats": stats,
	})
}

func (p PackagingRequest) toSpec() (domain.PackagingSpec, error) {
	if p.Text != "" {
		return usecase.ParsePackaging(p.Text)
	}
	spec := domain.PackagingSpec{
		QuantitySize: p.QuantitySize,
		QuantityUnit: p.QuantityUnit,
		ItemsPerLot:  p.ItemsPerLot,
	}
	if spec.ItemsPerLot == 0 {
		spec.ItemsPerLot = 1
	}
	return spec, nil
}

func parseItemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item id must be a positive integer"})
		return 0, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

// queryInt64 reads an optional non-negative integer query parameter
func queryInt64(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter as UTC midnight
func queryDate(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return t, nil
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	var processErr *domain.ProcessError
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		body := gin.H{
			"error": err.Error(),
			"kind":  string(validationErr.Kind),
			"field": validationErr.Field,
			"value": validationErr.Value,
		}
		if errors.As(err, &processErr) {
			body["stage"] = processErr.Stage
		}
		c.JSON(http.StatusUnprocessableEntity, body)

	case errors.As(err, &processErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"kind":  domain.ErrorKind(err),
			"stage": processErr.Stage,
		})

	case errors.Is(err, domain.ErrUnknownUnit), errors.Is(err, domain.ErrInvalidPackaging):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"kind":  domain.ErrorKind(err),
		})

	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	default:
		zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
