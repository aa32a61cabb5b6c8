package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var contactTracer = otel.Tracer("service/contact")

const defaultContactTimeout = 15 * time.Second

// ContactService forwards contact-form submissions by email. Delivery runs
// in the background so the visitor never waits on the mail provider.
type ContactService struct {
	mailer  port.Mailer
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewContactService creates a new contact service.
func NewContactService(mailer port.Mailer, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *ContactService {
	if timeout <= 0 {
		timeout = defaultContactTimeout
	}
	return &ContactService{mailer: mailer, metrics: metrics, logger: logger, timeout: timeout}
}

// Submit accepts the message and returns immediately.
func (s *ContactService) Submit(ctx context.Context, req *domain.ContactRequest) {
	msg := *req
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		sendCtx, span := contactTracer.Start(sendCtx, "ContactService.send")
		defer span.End()

		err := s.mailer.SendContact(sendCtx, &msg)
		s.metrics.RecordContactEmail(err)
		if err != nil {
			s.logger.Error("contact email failed", zap.String("from", msg.Email), zap.Error(err))
			return
		}
		s.logger.Info("contact email sent", zap.String("from", msg.Email))
	}()
}

// Wait blocks until every pending delivery has finished.
func (s *ContactService) Wait() {
	s.wg.Wait()
}
