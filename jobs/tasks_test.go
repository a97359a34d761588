package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newTestMailJob(t *testing.T, sendErr error) (*SendEmailJob, *[]sentMail) {
	t.Helper()
	var sent []sentMail
	job := NewSendEmailJob(SMTPConfig{
		Host: "smtp.test.local",
		Port: 2525,
		From: "no-reply@meridian.local",
	}, slog.New(slog.DiscardHandler), nil)
	job.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if sendErr != nil {
			return sendErr
		}
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: msg})
		return nil
	}
	return job, &sent
}

func TestSendEmailJobDelivers(t *testing.T) {
	job, sent := newTestMailJob(t, nil)

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "ops@meridian.local",
		Subject: "Shipment ASN-000012 completed",
		Body:    "All 3 lines received.",
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, *sent, 1)
	m := (*sent)[0]
	require.Equal(t, "smtp.test.local:2525", m.addr)
	require.Equal(t, "no-reply@meridian.local", m.from)
	require.Equal(t, []string{"ops@meridian.local"}, m.to)
	require.Contains(t, string(m.msg), "Subject: Shipment ASN-000012 completed")
	require.Contains(t, string(m.msg), "All 3 lines received.")
}

func TestSendEmailJobPropagatesDeliveryError(t *testing.T) {
	job, _ := newTestMailJob(t, errors.New("connection refused"))

	task, err := NewSendEmailTask(SendEmailPayload{To: "ops@meridian.local", Subject: "x"})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestSendEmailJobSkipsRetryOnBadPayload(t *testing.T) {
	job, sent := newTestMailJob(t, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte(`{"to":""}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, *sent)
}

func TestSendEmailJobRequiresSMTPHost(t *testing.T) {
	job := NewSendEmailJob(SMTPConfig{}, slog.New(slog.DiscardHandler), nil)
	task, err := NewSendEmailTask(SendEmailPayload{To: "ops@meridian.local"})
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}
