package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/render"
	"github.com/candemir/bulkmail/internal/repository"
)

// genericFailureReason is recorded for failures that happen outside the
// provider dispatch call, such as persistence errors or missing rows.
const genericFailureReason = "Network error"

// Dispatcher routes one rendered message to the provider adapter.
type Dispatcher interface {
	Dispatch(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult
}

// ProgressStore persists bulk run progress for polling.
type ProgressStore interface {
	Set(ctx context.Context, progress domain.BulkProgress) error
	Get(ctx context.Context, operationID string) (*domain.BulkProgress, error)
}

// sendMetrics is the slice of observability.Metrics the orchestrator uses.
type sendMetrics interface {
	IncEmailSent(provider string)
	IncEmailFailed(provider string, reason string)
	ObserveEmailSendDuration(provider string, duration time.Duration)
	IncBulkSendInFlight()
	DecBulkSendInFlight()
}

// BulkSendRequest names the contacts table, the template, the recipients,
// and the profile whose default provider carries the run.
type BulkSendRequest struct {
	TableName  string
	TemplateID string
	ContactIDs []string
	ProfileID  string

	// Observer, when set, receives a progress snapshot after every
	// contact. Called from the sending goroutine.
	Observer func(progress domain.BulkProgress)
}

type BulkSendService struct {
	contacts  repository.ContactRepository
	templates repository.TemplateRepository
	profiles  repository.ProfileRepository

	dispatcher Dispatcher
	progress   ProgressStore
	metrics    sendMetrics
	logger     *zap.Logger

	now    func() time.Time
	newID  func() string
	launch func(fn func())
}

func NewBulkSendService(
	contacts repository.ContactRepository,
	templates repository.TemplateRepository,
	profiles repository.ProfileRepository,
	dispatcher Dispatcher,
	progress ProgressStore,
	metrics sendMetrics,
	logger *zap.Logger,
) (*BulkSendService, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if progress == nil {
		return nil, fmt.Errorf("progress store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BulkSendService{
		contacts:   contacts,
		templates:  templates,
		profiles:   profiles,
		dispatcher: dispatcher,
		progress:   progress,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
		launch:     func(fn func()) { go fn() },
	}, nil
}

// Start validates the run and kicks off the sending loop. Preconditions
// are checked before any side effect; a violation leaves every contact
// row untouched and no progress entry behind. Once sending begins the
// run cannot be canceled.
func (s *BulkSendService) Start(ctx context.Context, req BulkSendRequest) (*domain.BulkProgress, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(req.TableName) == "" {
		return nil, fmt.Errorf("%w: contacts table name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	if len(req.ContactIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one contact id is required", domain.ErrValidation)
	}

	profile, err := s.profiles.GetByID(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}
	provider := profile.DefaultProvider()
	if provider == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNoProvider)
	}

	template, err := s.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	initial := domain.BulkProgress{
		OperationID: s.newID(),
		Total:       len(req.ContactIDs),
		Status:      domain.BulkSending,
	}
	if err := s.progress.Set(ctx, initial); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncBulkSendInFlight()
	}

	s.launch(func() {
		// The run outlives the HTTP request that started it.
		s.run(context.Background(), req, profile.ContactsTableName, provider, template, initial)
	})

	return &initial, nil
}

// Progress resolves the current state of a run by operation id.
func (s *BulkSendService) Progress(ctx context.Context, operationID string) (*domain.BulkProgress, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.progress.Get(ctx, operationID)
}

func (s *BulkSendService) run(
	ctx context.Context,
	req BulkSendRequest,
	tableName string,
	provider *domain.EmailProvider,
	template *domain.EmailTemplate,
	progress domain.BulkProgress,
) {
	defer func() {
		if s.metrics != nil {
			s.metrics.DecBulkSendInFlight()
		}
	}()

	providerLabel := provider.Type.String()

	table := strings.TrimSpace(tableName)
	if table == "" {
		table = req.TableName
	}

	contacts, err := s.contacts.FetchByIDs(ctx, table, req.ContactIDs)
	if err != nil {
		s.logger.Error("failed to fetch contacts for bulk send",
			zap.String("operationId", progress.OperationID),
			zap.String("table", table),
			zap.Error(err),
		)
		progress.Failed = progress.Total
		progress.Status = domain.BulkDone
		s.publish(ctx, req, progress)
		return
	}

	byID := make(map[string]*domain.Contact, len(contacts))
	for i := range contacts {
		byID[contacts[i].ID] = &contacts[i]
	}

	for _, contactID := range req.ContactIDs {
		contact, ok := byID[contactID]
		if !ok {
			progress.Failed++
			if s.metrics != nil {
				s.metrics.IncEmailFailed(providerLabel, genericFailureReason)
			}
			s.logger.Warn("contact not found, skipping",
				zap.String("operationId", progress.OperationID),
				zap.String("contactId", contactID),
			)
			s.publish(ctx, req, progress)
			continue
		}

		s.sendOne(ctx, req, table, provider, providerLabel, template, contact, &progress)
		s.publish(ctx, req, progress)
	}

	progress.Status = domain.BulkDone
	s.publish(ctx, req, progress)

	s.logger.Info("bulk send finished",
		zap.String("operationId", progress.OperationID),
		zap.Int("sent", progress.Sent),
		zap.Int("failed", progress.Failed),
		zap.Int("delivered", progress.Delivered),
		zap.Int("total", progress.Total),
	)
}

func (s *BulkSendService) sendOne(
	ctx context.Context,
	req BulkSendRequest,
	table string,
	provider *domain.EmailProvider,
	providerLabel string,
	template *domain.EmailTemplate,
	contact *domain.Contact,
	progress *domain.BulkProgress,
) {
	fields := contact.TemplateFields()
	data := map[string]any(contact.Data)

	msg := domain.EmailMessage{
		To:      contact.EmailID,
		Subject: render.Render(template.Subject, fields, data),
		HTML:    render.Render(template.HTMLContent, fields, data),
	}

	start := s.now()
	result := s.dispatcher.Dispatch(ctx, provider, msg)
	if s.metrics != nil {
		s.metrics.ObserveEmailSendDuration(providerLabel, s.now().Sub(start))
	}

	if !result.Success {
		progress.Failed++

		reason := result.Error
		if reason == "" {
			reason = genericFailureReason
		}
		if s.metrics != nil {
			s.metrics.IncEmailFailed(providerLabel, reason)
		}

		patch := repository.DeliveryPatch{
			Status:        domain.DeliveryFailed,
			FailureReason: &reason,
		}
		if err := s.contacts.UpdateDelivery(ctx, table, contact.ID, patch); err != nil {
			s.logger.Error("failed to record delivery failure",
				zap.String("operationId", progress.OperationID),
				zap.String("contactId", contact.ID),
				zap.Error(err),
			)
		}
		return
	}

	progress.Delivered++

	sentAt := s.now().UTC()
	timesSent := contact.NoOfTimeSent + 1
	patch := repository.DeliveryPatch{
		Status:       domain.DeliverySent,
		LastSentAt:   &sentAt,
		NoOfTimeSent: &timesSent,
		TemplateUsed: contact.TemplateUsed.Bump(template.Name, sentAt),
	}
	if err := s.contacts.UpdateDelivery(ctx, table, contact.ID, patch); err != nil {
		// The provider accepted the message but the row was not updated.
		// Counted failed so the operator re-checks, while Delivered keeps
		// the provider's view.
		progress.Failed++
		if s.metrics != nil {
			s.metrics.IncEmailFailed(providerLabel, genericFailureReason)
		}
		s.logger.Error("failed to record delivery success",
			zap.String("operationId", progress.OperationID),
			zap.String("contactId", contact.ID),
			zap.Error(err),
		)
		return
	}

	progress.Sent++
	if s.metrics != nil {
		s.metrics.IncEmailSent(providerLabel)
	}
}

func (s *BulkSendService) publish(ctx context.Context, req BulkSendRequest, progress domain.BulkProgress) {
	if err := s.progress.Set(ctx, progress); err != nil {
		s.logger.Error("failed to store bulk progress",
			zap.String("operationId", progress.OperationID),
			zap.Error(err),
		)
	}
	if req.Observer != nil {
		req.Observer(progress)
	}
}
