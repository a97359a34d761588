package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/meridian-wms/meridian/internal/insights"
	jobmetrics "github.com/meridian-wms/meridian/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeInsightsRefresh recomputes the dashboard metrics cache.
	TaskTypeInsightsRefresh = "insights:refresh"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes one email to deliver.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewInsightsRefreshTask constructs an Asynq task with no payload.
func NewInsightsRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeInsightsRefresh, nil)
}

// SMTPConfig points the mail job at a relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendEmailJob delivers queued emails over SMTP.
type SendEmailJob struct {
	SMTP    SMTPConfig
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSendEmailJob wires dependencies for the mail handler.
func NewSendEmailJob(cfg SMTPConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendEmailJob {
	return &SendEmailJob{SMTP: cfg, Logger: logger, Metrics: metrics, send: smtp.SendMail}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeSendEmail)
	err := j.deliver(payload)
	if err != nil {
		j.metrics().AddMail("failure")
		j.logger().Error("mail delivery failed",
			slog.String("to", payload.To), slog.Any("error", err))
	} else {
		j.metrics().AddMail("success")
	}
	return tracker.End(err)
}

func (j *SendEmailJob) deliver(payload SendEmailPayload) error {
	if j.SMTP.Host == "" {
		return errors.New("send email: smtp host not configured")
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", j.SMTP.From)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(payload.Body)

	addr := fmt.Sprintf("%s:%d", j.SMTP.Host, j.SMTP.Port)
	var auth smtp.Auth
	if j.SMTP.Username != "" {
		auth = smtp.PlainAuth("", j.SMTP.Username, j.SMTP.Password, j.SMTP.Host)
	}
	return j.send(addr, auth, j.SMTP.From, []string{payload.To}, []byte(msg.String()))
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (j *SendEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// InsightsRefreshJob recomputes the cached dashboard snapshot. It runs on a
// weekly cron and whenever a refresh is enqueued manually.
type InsightsRefreshJob struct {
	Insights *insights.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewInsightsRefreshJob wires dependencies for the refresh handler.
func NewInsightsRefreshJob(svc *insights.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *InsightsRefreshJob {
	return &InsightsRefreshJob{Insights: svc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeInsightsRefresh tasks.
func (j *InsightsRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Insights == nil {
		return errors.New("insights refresh: handler not configured")
	}
	tracker := j.metrics().Track(TaskTypeInsightsRefresh)
	snap, err := j.Insights.Refresh(ctx)
	if err != nil {
		j.logger().Error("insights refresh failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("insights refreshed",
		slog.Int("total_items", snap.TotalItems),
		slog.Int("low_stock", snap.LowStockItems))
	return tracker.End(nil)
}

func (j *InsightsRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeInsightsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskTypeInsightsRefresh))
}

func (j *InsightsRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
