package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
)

// ErrValidation is returned by Submit for requests that are never stored.
var ErrValidation = errors.New("invalid notification request")

const cacheKeyPrefix = "notification:"

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationRepository interface {
	Create(context.Context, model.Notification) (uuid.UUID, error)
	GetByID(context.Context, uuid.UUID) (model.Notification, error)
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

type attemptPolicy interface {
	MaxAttemptsFor(channel model.Channel, priority model.Priority) int
}

// SubmitRequest is a request to deliver content to one recipient.
type SubmitRequest struct {
	Channel       model.Channel  `validate:"required,oneof=email sms push"`
	Recipient     string         `validate:"required,max=4096"`
	Content       string         `validate:"required,max=20000"`
	Priority      model.Priority `validate:"min=0,max=3"`
	CorrelationID string         `validate:"max=255"`
	MaxAttempts   int            `validate:"min=0,max=50"` // zero takes the channel default
}

// Service accepts notification requests and answers status queries. It
// never contacts a channel provider.
type Service struct {
	repo     notificationRepository
	cache    cache
	policy   attemptPolicy
	clock    clock.Clock
	strategy retry.Strategy
	validate *validator.Validate
	metrics  *metrics.Metrics
}

// NewService creates a Service. cache may be nil, in which case every status
// query reads the record store.
func NewService(
	repo notificationRepository,
	cache cache,
	policy attemptPolicy,
	clk clock.Clock,
	strategy retry.Strategy,
	m *metrics.Metrics,
) *Service {
	v := validator.New()
	if err := v.RegisterValidation("push_token", validatePushToken); err != nil {
		panic(fmt.Sprintf("register push_token validation: %v", err))
	}

	return &Service{
		repo:     repo,
		cache:    cache,
		policy:   policy,
		clock:    clk,
		strategy: strategy,
		validate: v,
		metrics:  m,
	}
}

// Submit validates req and stores it as a pending notification.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (uuid.UUID, error) {
	if err := s.validateRequest(req); err != nil {
		return uuid.Nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = s.policy.MaxAttemptsFor(req.Channel, req.Priority)
	}

	n := model.Notification{
		Channel:       req.Channel,
		Recipient:     strings.TrimSpace(req.Recipient),
		Content:       req.Content,
		Priority:      req.Priority,
		Status:        model.StatusPending,
		MaxAttempts:   maxAttempts,
		CorrelationID: req.CorrelationID,
		CreatedAt:     s.clock.Now(),
	}

	id, err := s.repo.Create(ctx, n)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create notification: %w", err)
	}

	s.metrics.Submitted(n.Channel)
	zlog.Logger.Info().
		Str("id", id.String()).
		Str("channel", n.Channel.String()).
		Str("recipient", model.MaskRecipient(n.Channel, n.Recipient)).
		Str("priority", n.Priority.String()).
		Int("max_attempts", n.MaxAttempts).
		Msg("notification accepted")

	return id, nil
}

func (s *Service) validateRequest(req SubmitRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	var tag string
	switch req.Channel {
	case model.ChannelEmail:
		tag = "email"
	case model.ChannelSMS:
		tag = "e164"
	case model.ChannelPush:
		tag = "push_token"
	}

	if err := s.validate.Var(strings.TrimSpace(req.Recipient), tag); err != nil {
		return fmt.Errorf("%w: recipient is not a valid %s address", ErrValidation, req.Channel)
	}

	return nil
}

// validatePushToken accepts printable device tokens without whitespace.
func validatePushToken(fl validator.FieldLevel) bool {
	token := fl.Field().String()
	if len(token) < 8 || len(token) > 4096 {
		return false
	}

	for _, r := range token {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// GetStatus returns the status summary of a notification. Summaries of
// terminal notifications are cached since they never change.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (model.Summary, error) {
	key := cacheKeyPrefix + id.String()

	if s.cache != nil {
		cached, err := s.cache.GetWithRetry(ctx, s.strategy, key)
		switch {
		case err == nil:
			var summary model.Summary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return summary, nil
			}
			zlog.Logger.Warn().Str("id", id.String()).Msg("discarding malformed cached summary")
		case !errors.Is(err, redis.Nil):
			zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification summary from cache")
		}
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Summary{}, fmt.Errorf("get notification: %w", err)
	}

	summary := n.Summary()

	if s.cache != nil && summary.Status.IsTerminal() {
		body, err := json.Marshal(summary)
		if err == nil {
			err = s.cache.SetWithRetry(ctx, s.strategy, key, string(body))
		}
		if err != nil {
			zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification summary")
		}
	}

	return summary, nil
}
