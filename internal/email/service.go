package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxAttempts    = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues outbound emails on a Redis list and drains it from a
// background worker. Sends are best-effort: a message that still fails after
// maxAttempts moves to the failed queue for manual inspection.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, to, name, emailType, subject, body string) error {
	job := Job{
		To:      to,
		Name:    name,
		Type:    emailType,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.WithError(err).Error("failed to marshal email job", "to", to)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.WithError(err).Error("failed to queue email", "to", to, "type", emailType)
		metrics.RecordEmail(emailType, "queue_failed")
		return err
	}

	logger.Info("email queued", "to", to, "type", emailType)
	return nil
}

// Start drains the queue until the context is cancelled. Run it in its own
// goroutine.
func (s *Service) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.WithError(err).Error("dropping malformed email job")
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.WithError(err).Error("email send failed",
			"to", job.To, "type", job.Type, "attempt", job.Tries)

		if job.Tries < maxAttempts {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "to", job.To, "type", job.Type)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Error("email moved to failed queue", "to", job.To, "type", job.Type)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendBookingConfirmation(ctx context.Context, to, name, fieldName, reference string, date time.Time, startTime, endTime string) error {
	subject := "Booking Confirmed - " + reference
	body := fmt.Sprintf(`Hi %s,

Your booking is confirmed!

Field: %s
Date: %s
Time: %s - %s
Reference: %s

Enjoy your visit!

- The Fieldsy Team`, name, fieldName, date.Format("Monday, 2 Jan 2006"), startTime, endTime, reference)

	return s.Send(ctx, to, name, "booking_confirmation", subject, body)
}

func (s *Service) SendBookingReceived(ctx context.Context, to, name, fieldName, reference string, date time.Time, startTime, endTime string) error {
	subject := "New Booking - " + fieldName
	body := fmt.Sprintf(`Hi %s,

You have a new booking for %s.

Date: %s
Time: %s - %s
Reference: %s

- The Fieldsy Team`, name, fieldName, date.Format("Monday, 2 Jan 2006"), startTime, endTime, reference)

	return s.Send(ctx, to, name, "booking_received", subject, body)
}

func (s *Service) SendCancellation(ctx context.Context, to, name, fieldName, reference string, refundAmount float64) error {
	subject := "Booking Cancelled - " + reference
	refundLine := "No refund applies under the cancellation policy."
	if refundAmount > 0 {
		refundLine = fmt.Sprintf("A refund of £%.2f is on its way to your original payment method.", refundAmount)
	}
	body := fmt.Sprintf(`Hi %s,

Your booking %s at %s has been cancelled.

%s

- The Fieldsy Team`, name, reference, fieldName, refundLine)

	return s.Send(ctx, to, name, "booking_cancellation", subject, body)
}

func (s *Service) SendPayoutNotification(ctx context.Context, to, name string, amount float64, bookingCount int) error {
	subject := "Payout on its way"
	body := fmt.Sprintf(`Hi %s,

We've sent a payout of £%.2f covering %d booking(s) to your connected account.
It should arrive within a few business days.

- The Fieldsy Team`, name, amount, bookingCount)

	return s.Send(ctx, to, name, "payout_sent", subject, body)
}
