package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/dashboard"
	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/realtime"
	"github.com/MarcoPoloResearchLab/relief/internal/reports"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRateLimitRPS      = 20
	defaultHeartbeatInterval = 15 * time.Second

	streamPath = "/api/stream"
)

var (
	errMissingController = errors.New("dashboard controller dependency required")
	errMissingLiveFeed   = errors.New("live feed dependency required")
	errMissingDispatcher = errors.New("stream dispatcher dependency required")
)

// LiveFeed exposes the live update channel's current snapshot.
type LiveFeed interface {
	Snapshot() realtime.Snapshot
}

type Dependencies struct {
	Controller        *dashboard.Controller
	Live              LiveFeed
	Dispatcher        *StreamDispatcher
	Logger            *zap.Logger
	RateLimitRPS      int
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Controller == nil {
		return nil, errMissingController
	}
	if deps.Live == nil {
		return nil, errMissingLiveFeed
	}
	if deps.Dispatcher == nil {
		return nil, errMissingDispatcher
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := deps.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(rateLimitMiddleware(rps, streamPath))

	handler := &httpHandler{
		controller: deps.Controller,
		live:       deps.Live,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		heartbeat:  heartbeat,
	}

	api := router.Group("/api")
	api.GET("/state", handler.handleState)
	api.GET("/meta", handler.handleMeta)
	api.GET("/stream", handler.handleStream)
	api.PUT("/tab", handler.handleSetTab)
	api.PUT("/updates/panel", handler.handleUpdatesPanel)
	api.DELETE("/notification", handler.handleDismissNotification)

	api.POST("/disasters/reload", handler.handleReload)
	api.POST("/disasters/:id/edit", handler.handleBeginEdit)
	api.DELETE("/disasters/:id", handler.handleDelete)
	api.POST("/editor/cancel", handler.handleCancelEdit)
	api.POST("/editor/save", handler.handleSave)

	api.POST("/geocoding/extract-location", handler.handleExtractLocation)
	api.POST("/reports/verify-image", handler.handleVerifyImage)
	api.POST("/reports", handler.handleSubmitReport)
	api.PUT("/social/selection", handler.handleSocialSelection)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Accept", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	controller *dashboard.Controller
	live       LiveFeed
	dispatcher *StreamDispatcher
	logger     *zap.Logger
	heartbeat  time.Duration
}

type statePayload struct {
	View dashboard.View    `json:"view"`
	Live realtime.Snapshot `json:"live"`
}

func (h *httpHandler) snapshot() statePayload {
	return statePayload{
		View: dashboard.BuildView(h.controller.State()),
		Live: h.live.Snapshot(),
	}
}

func (h *httpHandler) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot())
}

type metaPayload struct {
	SeverityLevels []disasters.SeverityLevel `json:"severity_levels"`
	DisasterTypes  []string                  `json:"disaster_types"`
	Tabs           []dashboard.Tab           `json:"tabs"`
}

func (h *httpHandler) handleMeta(c *gin.Context) {
	c.JSON(http.StatusOK, metaPayload{
		SeverityLevels: disasters.SeverityLevels(),
		DisasterTypes:  disasters.Types(),
		Tabs:           dashboard.Tabs(),
	})
}

type tabRequestPayload struct {
	Tab string `json:"tab"`
}

func (h *httpHandler) handleSetTab(c *gin.Context) {
	var request tabRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.controller.SetTab(request.Tab); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tab"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot())
}

type panelRequestPayload struct {
	Visible *bool `json:"visible"`
}

func (h *httpHandler) handleUpdatesPanel(c *gin.Context) {
	var request panelRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Visible == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.controller.SetUpdatesVisible(*request.Visible)
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *httpHandler) handleDismissNotification(c *gin.Context) {
	h.controller.DismissNotification()
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleReload(c *gin.Context) {
	h.controller.LoadAll(c.Request.Context())
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *httpHandler) handleBeginEdit(c *gin.Context) {
	if _, err := h.controller.BeginEdit(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "disaster_not_found"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *httpHandler) handleCancelEdit(c *gin.Context) {
	h.controller.CancelEdit()
	c.JSON(http.StatusOK, h.snapshot())
}

func (h *httpHandler) handleSave(c *gin.Context) {
	var input disasters.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	saved, err := h.controller.Save(c.Request.Context(), input)
	switch {
	case errors.Is(err, disasters.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "save_failed", "message": dashboard.MessageSaveFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disaster": dashboard.Card(saved)})
}

func (h *httpHandler) handleDelete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	confirmer := dashboard.ConfirmFunc(func(context.Context, string) bool { return confirmed })

	err := h.controller.Delete(c.Request.Context(), c.Param("id"), confirmer)
	switch {
	case errors.Is(err, dashboard.ErrDeleteDeclined):
		c.JSON(http.StatusConflict, gin.H{"error": "confirmation_required", "message": dashboard.DeletePrompt})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "delete_failed", "message": dashboard.MessageDeleteFailed})
		return
	}
	c.Status(http.StatusNoContent)
}

type extractRequestPayload struct {
	Description string `json:"description"`
}

func (h *httpHandler) handleExtractLocation(c *gin.Context) {
	var request extractRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	location, err := h.controller.ExtractLocation(c.Request.Context(), request.Description)
	switch {
	case errors.Is(err, dashboard.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_description"})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "extract_failed", "message": dashboard.MessageExtractFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"location_name": location})
}

type verifyRequestPayload struct {
	DisasterID string `json:"disaster_id"`
	ImageURL   string `json:"image_url"`
}

type verificationPayload struct {
	reports.Verification
	Details json.RawMessage `json:"details"`
}

func (h *httpHandler) handleVerifyImage(c *gin.Context) {
	var request verifyRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	verification, err := h.controller.VerifyImage(c.Request.Context(), request.DisasterID, request.ImageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_fields"})
		return
	}
	c.JSON(http.StatusOK, verificationPayload{Verification: verification, Details: verification.Details()})
}

type reportRequestPayload struct {
	DisasterID          string          `json:"disaster_id"`
	Content             string          `json:"content"`
	ImageURL            string          `json:"image_url"`
	VerificationDetails json.RawMessage `json:"verification_details"`
}

func (p reportRequestPayload) verification() (*reports.Verification, error) {
	trimmed := strings.TrimSpace(string(p.VerificationDetails))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var verification reports.Verification
	if err := json.Unmarshal(p.VerificationDetails, &verification); err != nil {
		return nil, err
	}
	verification.Raw = append(json.RawMessage(nil), p.VerificationDetails...)
	return &verification, nil
}

func (h *httpHandler) handleSubmitReport(c *gin.Context) {
	var request reportRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	verification, err := request.verification()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_verification_details"})
		return
	}

	draft := reports.Draft{DisasterID: request.DisasterID, Content: request.Content, ImageURL: request.ImageURL}
	created, err := h.controller.SubmitReport(c.Request.Context(), draft, verification)
	switch {
	case errors.Is(err, reports.ErrIncompleteDraft):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "incomplete_report", "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "report_failed", "message": dashboard.MessageReportFailed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": created})
}

type socialRequestPayload struct {
	DisasterID string `json:"disaster_id"`
}

func (h *httpHandler) handleSocialSelection(c *gin.Context) {
	var request socialRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	feed := h.controller.SelectSocialDisaster(c.Request.Context(), request.DisasterID)
	c.JSON(http.StatusOK, gin.H{"social": feed})
}

func (h *httpHandler) handleStream(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.dispatcher.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	initial := h.snapshot()
	c.SSEvent(StreamEventState, initial.View)
	c.SSEvent(StreamEventLive, initial.Live)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(message.EventType, message.Payload)
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(streamEventHeartbeat, gin.H{
				"source":    streamSourceBackend,
				"timestamp": tick.UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		}
	}
}
