package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/config"
	"github.com/aliskhannn/clinic-notifier/internal/kafka"
	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/publisher"
	"github.com/aliskhannn/clinic-notifier/internal/rabbitmq/queue"
	"github.com/aliskhannn/clinic-notifier/internal/repository/memory"
	notifrepo "github.com/aliskhannn/clinic-notifier/internal/repository/notification"
	"github.com/aliskhannn/clinic-notifier/internal/sender"
	"github.com/aliskhannn/clinic-notifier/pkg/email"
	"github.com/aliskhannn/clinic-notifier/pkg/push"
	"github.com/aliskhannn/clinic-notifier/pkg/sms"
)

type recordStore interface {
	Create(ctx context.Context, n model.Notification) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Notification, error)
	ClaimBatch(ctx context.Context, limit int, now time.Time) ([]model.Notification, error)
	RecordOutcome(ctx context.Context, id, claimToken uuid.UUID, outcome model.Outcome) error
	PurgeTerminalOlderThan(ctx context.Context, retention time.Duration, now time.Time) (int64, error)
}

func newStore(cfg *config.Config) (recordStore, func()) {
	if cfg.Storage.Driver == "memory" {
		zlog.Logger.Warn().Msg("using in-memory notification store, state is lost on restart")
		return memory.NewStore(cfg.Scheduler.StaleGrace), func() {}
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	closeDB := func() {
		if err := db.Master.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close master DB")
		}

		for i, s := range db.Slaves {
			if err := s.Close(); err != nil {
				zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
			}
		}
	}

	return notifrepo.NewRepository(db, cfg.Scheduler.StaleGrace), closeDB
}

func newSink(cfg *config.Config) (publisher.Sink, func()) {
	switch cfg.Audit.Sink {
	case "kafka":
		p := kafka.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.Topic)
		return p, func() {
			if err := p.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close kafka writer")
			}
		}

	case "rabbitmq":
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL(), cfg.RabbitMQ.Retries, cfg.RabbitMQ.Pause)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}

		ch, err := conn.Channel()
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
		}

		q, err := queue.NewOutcomeQueue(ch, cfg.RabbitMQ)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to create audit queue")
		}

		return q, func() {
			if err := ch.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
			}
			if err := conn.Close(); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
			}
		}

	default:
		return publisher.LogSink{}, func() {}
	}
}

func newRegistry(cfg *config.Config) *sender.Registry {
	registry := sender.NewRegistry()
	httpClient := &http.Client{Timeout: cfg.Sender.Timeout}

	if cfg.Email.Enabled {
		registry.Register(model.ChannelEmail, sender.NewEmail(email.NewClient(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
			cfg.Email.Subject,
		)))
	}

	if cfg.SMS.Enabled {
		client := sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.From, httpClient)
		registry.Register(model.ChannelSMS, sender.NewSMS(client, cfg.SMS.MaxLength))
	}

	if cfg.Push.Enabled {
		client := push.NewClient(cfg.Push.BaseURL, cfg.Push.APIKey, cfg.Push.Title, httpClient)
		registry.Register(model.ChannelPush, sender.NewPush(client))
	}

	zlog.Logger.Info().Interface("channels", registry.Channels()).Msg("channel senders registered")

	return registry
}
