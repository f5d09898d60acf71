package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/jobs"
	"github.com/noah-isme/elective-portal-api/pkg/mail"
)

const notificationJobType = "notification.email"

type recipientSource interface {
	ListRecipients(ctx context.Context, filter models.RecipientFilter) ([]models.Recipient, error)
}

// NotificationConfig sizes email batches and the delivery worker pool.
type NotificationConfig struct {
	BatchSize   int
	Queue       jobs.QueueConfig
	QueueName   string
	Synchronous bool
}

// NotificationService resolves recipients and delivers broadcast emails in
// batches through a background queue.
type NotificationService struct {
	recipients recipientSource
	sender     mail.Sender
	queue      *jobs.Queue
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        NotificationConfig
}

// NewNotificationService constructs a NotificationService. Call Start before
// Broadcast unless cfg.Synchronous is set.
func NewNotificationService(recipients recipientSource, sender mail.Sender, metrics *MetricsService, cfg NotificationConfig, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "notifications"
	}
	s := &NotificationService{
		recipients: recipients,
		sender:     sender,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
	if cfg.Queue.Logger == nil {
		cfg.Queue.Logger = logger
	}
	if cfg.Queue.DeadLetter == nil {
		cfg.Queue.DeadLetter = s.deadLetter
	}
	s.cfg = cfg
	s.queue = jobs.NewQueue(cfg.QueueName, s.deliver, cfg.Queue)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Broadcast queues req for every matching student. Each batch becomes one job.
func (s *NotificationService) Broadcast(ctx context.Context, actor *models.JWTClaims, req models.NotificationRequest) (*models.NotificationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if req.ElectiveID == "" && req.Department == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "electiveId or department is required")
	}

	recipients, err := s.recipients.ListRecipients(ctx, models.RecipientFilter{
		ElectiveID: req.ElectiveID,
		Department: req.Department,
		Semester:   req.Semester,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	if len(recipients) == 0 {
		return &models.NotificationResult{}, nil
	}

	broadcastID := uuid.NewString()
	batches := 0
	for start := 0; start < len(recipients); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		msg := mail.Message{Subject: req.Subject, Text: req.Body}
		for _, r := range recipients[start:end] {
			msg.To = append(msg.To, mail.Address{Name: r.FullName, Email: r.Email})
		}
		job := jobs.Job{
			ID:      fmt.Sprintf("%s-%d", broadcastID, batches),
			Type:    notificationJobType,
			Payload: msg,
		}
		if s.cfg.Synchronous {
			if err := s.deliver(ctx, job); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send notification")
			}
		} else if err := s.queue.Enqueue(job); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue notification")
		}
		batches++
	}

	fields := []zap.Field{
		zap.String("broadcast_id", broadcastID),
		zap.Int("recipients", len(recipients)),
		zap.Int("batches", batches),
	}
	if actor != nil {
		fields = append(fields, zap.String("actor", actor.UserID))
	}
	s.logger.Info("notification queued", fields...)
	return &models.NotificationResult{Recipients: len(recipients), Batches: batches}, nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	err := s.sender.Send(ctx, msg)
	s.metrics.RecordNotification(err == nil)
	return err
}

func (s *NotificationService) deadLetter(job jobs.Job, err error) {
	recipients := 0
	if msg, ok := job.Payload.(mail.Message); ok {
		recipients = len(msg.To)
	}
	s.logger.Error("notification batch dropped",
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempt),
		zap.Int("recipients", recipients),
		zap.Error(err))
}
