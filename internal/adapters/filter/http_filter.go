package filter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phishing-detector/internal/config"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/features"
	"github.com/mikey/phishing-detector/internal/mailparse"
	"go.uber.org/zap"
)

// DetectRequest is the JSON body accepted by /detect and /features.
// RawMessage, when present, is parsed as a complete RFC 5322 message and
// takes precedence over the individual fields.
type DetectRequest struct {
	EmailContent string `json:"email_content"`
	EmailSubject string `json:"email_subject"`
	FromAddress  string `json:"from_address"`
	ToAddress    string `json:"to_address"`
	RawMessage   string `json:"raw_message,omitempty"`
}

// DetectResponse is the body returned by a successful /detect call
type DetectResponse struct {
	Success bool         `json:"success"`
	Result  DetectResult `json:"result"`
}

// DetectResult is the verdict subset exposed over HTTP
type DetectResult struct {
	IsPhishing            bool            `json:"is_phishing"`
	PhishingProbability   float64         `json:"phishing_probability"`
	LegitimateProbability float64         `json:"legitimate_probability"`
	Confidence            float64         `json:"confidence"`
	Explanation           string          `json:"explanation,omitempty"`
	ModelUsed             string          `json:"model_used"`
	ProcessingID          string          `json:"processing_id"`
	Cached                bool            `json:"cached"`
	Features              features.Vector `json:"features"`
}

// MetricsHandler serves collected metrics
type MetricsHandler interface {
	Handler() http.Handler
}

// HTTPFilter exposes detection over a JSON API
type HTTPFilter struct {
	service *core.DetectionService
	logger  *zap.Logger
	cfg     config.ServerConfig
	metrics MetricsHandler
	router  *gin.Engine
	server  *http.Server
}

// NewHTTPFilter creates a new HTTP filter. metrics may be nil.
func NewHTTPFilter(service *core.DetectionService, logger *zap.Logger, cfg config.ServerConfig, metrics MetricsHandler) *HTTPFilter {
	f := &HTTPFilter{
		service: service,
		logger:  logger,
		cfg:     cfg,
		metrics: metrics,
	}
	f.router = f.routes()
	return f
}

func (f *HTTPFilter) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(f.requestLogger())

	router.POST("/detect", f.Detect)
	router.POST("/features", f.Features)
	router.GET("/health", f.Health)
	if f.metrics != nil {
		router.GET("/metrics", gin.WrapH(f.metrics.Handler()))
	}
	return router
}

// requestLogger logs one line per request
func (f *HTTPFilter) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		f.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// Handler returns the HTTP handler serving the API
func (f *HTTPFilter) Handler() http.Handler {
	return f.router
}

// Start starts the HTTP server in the background
func (f *HTTPFilter) Start() error {
	f.server = &http.Server{
		Addr:              f.cfg.ListenAddress,
		Handler:           f.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	f.logger.Info("HTTP filter starting", zap.String("address", f.cfg.ListenAddress))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down
func (f *HTTPFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

// ProcessEmail classifies an already decoded email
func (f *HTTPFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.DetectionResult, error) {
	return f.service.Detect(ctx, email)
}

// Detect handles POST /detect
func (f *HTTPFilter) Detect(c *gin.Context) {
	email, ok := f.bindEmail(c)
	if !ok {
		return
	}

	result, err := f.service.Detect(c.Request.Context(), email)
	if err != nil {
		f.writeError(c, err)
		return
	}

	f.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("sender_domain", features.SenderDomain(email.From)),
		zap.Bool("is_phishing", result.IsPhishing),
		zap.Float64("probability", result.PhishingProbability),
		zap.String("model", result.ModelUsed))

	c.JSON(http.StatusOK, DetectResponse{
		Success: true,
		Result: DetectResult{
			IsPhishing:            result.IsPhishing,
			PhishingProbability:   result.PhishingProbability,
			LegitimateProbability: result.LegitimateProbability,
			Confidence:            result.Confidence,
			Explanation:           result.Explanation,
			ModelUsed:             result.ModelUsed,
			ProcessingID:          result.ProcessingID,
			Cached:                result.Cached,
			Features:              result.Features,
		},
	})
}

// Features handles POST /features. No model is required.
func (f *HTTPFilter) Features(c *gin.Context) {
	email, ok := f.bindEmail(c)
	if !ok {
		return
	}
	if email.Body == "" {
		f.writeError(c, core.ErrContentRequired)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"features": f.service.ExtractFeatures(email),
	})
}

// Health handles GET /health
func (f *HTTPFilter) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": f.service.ModelAvailable(),
	})
}

// bindEmail decodes the request body into an email. On failure the response
// has already been written.
func (f *HTTPFilter) bindEmail(c *gin.Context) (*core.Email, bool) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return nil, false
	}

	if req.RawMessage != "" {
		msg, err := mailparse.ParseBytes([]byte(req.RawMessage))
		if err != nil {
			f.writeError(c, err)
			return nil, false
		}
		return msg.Email(), true
	}

	email := &core.Email{
		From:    req.FromAddress,
		Subject: req.EmailSubject,
		Body:    req.EmailContent,
	}
	if req.ToAddress != "" {
		for _, addr := range strings.Split(req.ToAddress, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				email.To = append(email.To, addr)
			}
		}
	}
	return email, true
}

// writeError maps service errors onto HTTP status codes
func (f *HTTPFilter) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email content is required"})
	case errors.Is(err, core.ErrModelUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not loaded"})
	case errors.Is(err, mailparse.ErrUnparseable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		f.logger.Error("Failed to analyze email", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
