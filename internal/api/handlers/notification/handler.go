package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/api/dto"
	"github.com/aliskhannn/clinic-notifier/internal/api/respond"
	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/repository"
	service "github.com/aliskhannn/clinic-notifier/internal/service/notification"
)

// notificationService defines the interface that the Handler depends on.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks
type notificationService interface {
	Submit(context.Context, service.SubmitRequest) (uuid.UUID, error)
	GetStatus(context.Context, uuid.UUID) (model.Summary, error)
}

// Handler handles HTTP requests related to notifications.
//
// It only accepts submissions and answers status queries; delivery happens
// in the scheduler.
type Handler struct {
	service   notificationService
	validator *validator.Validate
}

// NewHandler creates a new Handler instance.
func NewHandler(s notificationService, v *validator.Validate) *Handler {
	return &Handler{service: s, validator: v}
}

// Submit handles HTTP POST requests that queue a notification for delivery.
//
// The request is validated synchronously; a rejected request is never
// stored. An accepted one is answered with its id before any send happens.
func (h *Handler) Submit(c *ginext.Context) {
	var req dto.SubmitRequest

	// Decode JSON request body into SubmitRequest struct.
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	id, err := h.service.Submit(c.Request.Context(), service.SubmitRequest{
		Channel:       model.Channel(req.Channel),
		Recipient:     req.Recipient,
		Content:       req.Content,
		Priority:      priority,
		CorrelationID: req.CorrelationID,
		MaxAttempts:   req.MaxAttempts,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			zlog.Logger.Warn().Err(err).Str("channel", req.Channel).Msg("notification rejected")
			respond.Fail(c.Writer, http.StatusBadRequest, err)
			return
		}

		zlog.Logger.Error().Err(err).Str("channel", req.Channel).Msg("failed to submit notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Accepted(c.Writer, dto.SubmitResponse{ID: id, Status: model.StatusPending.String()})
}

// GetStatus handles HTTP GET requests for the status summary of a
// notification. The summary carries no content and a masked recipient.
func (h *Handler) GetStatus(c *ginext.Context) {
	// Extract notification ID from URL parameters.
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil || id == uuid.Nil {
		zlog.Logger.Warn().Str("id", idStr).Msg("invalid notification id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return
	}

	summary, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, summary)
}
