package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"registrationportal/internal/errdefs"
	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"
	"registrationportal/internal/model"
	"registrationportal/internal/retry"
	"registrationportal/internal/view"

	"go.uber.org/zap"
)

const (
	KindConfirmation = "confirmation"
	KindAdminNotice  = "admin_notice"

	confirmationSubject = "Registration Application Confirmation"
	adminNoticeSubject  = "New Registration Application Received"
)

type Settings struct {
	AdminEmail string
	FromEmail  string
	FromName   string
	ReplyTo    string
	Retries    int
	RetryDelay time.Duration
}

// Sender delivers the notifications for one submission.
type Sender interface {
	Notify(ctx context.Context, sub *model.Submission) error
}

type Notifier struct {
	engine  *view.Engine
	mailer  Mailer
	s       Settings
	breaker *retry.CircuitBreaker
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewNotifier(engine *view.Engine, mailer Mailer, s Settings, m *metrics.Metrics, logger *logging.Logger) *Notifier {
	if s.Retries < 1 {
		s.Retries = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Notifier{
		engine:  engine,
		mailer:  mailer,
		s:       s,
		breaker: retry.NewCircuitBreaker(5, time.Minute, IsTransient),
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Notify sends the applicant confirmation and the admin notice. Each failed
// message becomes a NotificationError; both are attempted regardless.
func (n *Notifier) Notify(ctx context.Context, sub *model.Submission) error {
	msgs, err := n.Compose(sub)
	if err != nil {
		n.logger.Error(ctx, "failed to compose notifications", zap.String("submission_id", sub.ID), zap.Error(err))
		return &errdefs.NotificationError{Recipient: sub.Field("email"), Err: err}
	}

	var errs []error
	for _, msg := range msgs {
		if err := n.send(ctx, msg); err != nil {
			nerr := &errdefs.NotificationError{Recipient: msg.To, Err: err}
			n.logger.Error(ctx, "Email notification failed",
				zap.String("submission_id", sub.ID),
				zap.String("kind", msg.Kind),
				zap.Error(nerr))
			n.metrics.Notification(msg.Kind, "failed")
			errs = append(errs, nerr)
			continue
		}
		n.metrics.Notification(msg.Kind, "sent")
	}
	if len(errs) == 0 {
		n.logger.Info(ctx, fmt.Sprintf("Confirmation emails sent for submission: %s", sub.ID))
	}
	return errors.Join(errs...)
}

func (n *Notifier) Compose(sub *model.Submission) ([]Message, error) {
	from := n.from()
	submittedAt := view.FormatTimestamp(sub.Timestamp)

	confirmation, err := n.engine.RenderString(view.Confirmation, view.Context{
		"name":         sub.FullName(),
		"id":           sub.ID,
		"submitted_at": submittedAt,
		"email":        sub.Field("email"),
		"phone":        sub.Field("phone"),
		"year":         n.now().Year(),
		"portal":       n.s.FromName,
	})
	if err != nil {
		return nil, err
	}

	admin, err := n.engine.RenderString(view.AdminNotice, view.Context{
		"id":           sub.ID,
		"submitted_at": submittedAt,
		"client_ip":    sub.ClientIP,
		"rows":         adminRows(sub),
		"files":        view.Files(sub),
	})
	if err != nil {
		return nil, err
	}

	return []Message{
		{
			Kind:     KindConfirmation,
			From:     from,
			To:       sub.Field("email"),
			ReplyTo:  n.replyTo(),
			Subject:  confirmationSubject,
			HTMLBody: confirmation,
		},
		{
			Kind:     KindAdminNotice,
			From:     from,
			To:       n.s.AdminEmail,
			Subject:  adminNoticeSubject,
			HTMLBody: admin,
		},
	}, nil
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	_, err := retry.WithBackoff(ctx, n.s.Retries, n.s.RetryDelay, IsTransient, func() (struct{}, error) {
		return struct{}{}, n.breaker.Execute(func() error {
			return n.mailer.Send(ctx, msg)
		})
	})
	return err
}

func (n *Notifier) from() string {
	if n.s.FromName == "" {
		return n.s.FromEmail
	}
	return fmt.Sprintf("%s <%s>", n.s.FromName, n.s.FromEmail)
}

func (n *Notifier) replyTo() string {
	if n.s.ReplyTo != "" {
		return n.s.ReplyTo
	}
	return n.s.AdminEmail
}

func adminRows(sub *model.Submission) []view.Row {
	address := make([]string, 0, 4)
	for _, f := range []string{"address", "city"} {
		if v := sub.Field(f); v != "" {
			address = append(address, v)
		}
	}
	if region := strings.TrimSpace(sub.Field("state") + " " + sub.Field("zipCode")); region != "" {
		address = append(address, region)
	}
	if v := sub.Field("country"); v != "" {
		address = append(address, v)
	}

	field := func(key string) string { return view.Stringify(sub.Fields[key]) }
	return []view.Row{
		{Label: "Name", Value: sub.FullName()},
		{Label: "Email", Value: field("email")},
		{Label: "Phone", Value: field("phone")},
		{Label: "Date of Birth", Value: field("dateOfBirth")},
		{Label: "Gender", Value: field("gender")},
		{Label: "Nationality", Value: field("nationality")},
		{Label: "Address", Value: strings.Join(address, ", ")},
		{Label: "Education", Value: field("education")},
		{Label: "Field of Study", Value: field("fieldOfStudy")},
		{Label: "Institution", Value: field("institution")},
		{Label: "Work Experience", Value: field("workExperience")},
	}
}
