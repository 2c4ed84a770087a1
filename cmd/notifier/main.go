package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"registrationportal/internal/config"
	"registrationportal/internal/logging"
	"registrationportal/internal/notify"
	"registrationportal/internal/view"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxLoggedValue = 512

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(fmt.Sprintf("cannot load config: %v", err))
	}

	zapLogger, err := logging.Build(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("cannot create logger: %v", err))
	}
	logger := logging.New(zapLogger)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	brokers := cleanList(cfg.Kafka.Brokers)
	if len(brokers) == 0 {
		brokers = []string{"kafka:9092"}
	}
	logger.Info(ctx, "Starting notification consumer",
		zap.String("topic", cfg.Kafka.Topic),
		zap.Strings("brokers", brokers),
		zap.String("group_id", cfg.Kafka.GroupID),
	)

	engine, err := view.NewEngine()
	if err != nil {
		logger.Fatal(ctx, "cannot load templates", zap.Error(err))
	}
	notifier := notify.NewNotifier(engine, notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
	}, logger), notify.Settings{
		AdminEmail: cfg.Mail.AdminEmail,
		FromEmail:  cfg.Mail.FromEmail,
		FromName:   cfg.Mail.FromName,
		ReplyTo:    cfg.Mail.ReplyAddress(),
		Retries:    cfg.Mail.Retries,
		RetryDelay: cfg.Mail.RetryDelay,
	}, nil, logger)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   cfg.Kafka.Topic,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Consumer shutting down")
				return
			}
			logger.Error(ctx, "Failed to fetch message", zap.Error(err))
			continue
		}

		processMessage(ctx, notifier, logger, msg)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Failed to commit message", zap.Error(err))
		}
	}
}

// processMessage delivers the notifications for one relayed submission.
// Undecodable messages are logged and skipped so they are still committed.
func processMessage(ctx context.Context, sender notify.Sender, logger *logging.Logger, msg kafka.Message) {
	sub, err := notify.DecodeSubmission(msg)
	if err != nil {
		logger.Warn(ctx, "Failed to unmarshal message",
			zap.String("topic", msg.Topic),
			zap.ByteString("value", truncateBytes(msg.Value, maxLoggedValue)),
			zap.Error(err),
		)
		return
	}

	logger.Info(ctx, "Received submission",
		zap.String("submission_id", sub.ID),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	if err := sender.Notify(ctx, sub); err != nil {
		logger.Error(ctx, "Email notification failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func truncateBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
