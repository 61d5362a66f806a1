package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/repository"
)

type fakeContactRepo struct {
	getByIDFn        func(ctx context.Context, table string, id string) (*domain.Contact, error)
	fetchByIDsFn     func(ctx context.Context, table string, ids []string) ([]domain.Contact, error)
	updateDeliveryFn func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error
	markOpenedFn     func(ctx context.Context, table string, email string) error
	listFn           func(ctx context.Context, table string, params repository.ContactListParams) ([]domain.Contact, int64, error)
}

func (f *fakeContactRepo) GetByID(ctx context.Context, table string, id string) (*domain.Contact, error) {
	return f.getByIDFn(ctx, table, id)
}

func (f *fakeContactRepo) FetchByIDs(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
	return f.fetchByIDsFn(ctx, table, ids)
}

func (f *fakeContactRepo) UpdateDelivery(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
	return f.updateDeliveryFn(ctx, table, id, patch)
}

func (f *fakeContactRepo) MarkOpened(ctx context.Context, table string, email string) error {
	return f.markOpenedFn(ctx, table, email)
}

func (f *fakeContactRepo) List(ctx context.Context, table string, params repository.ContactListParams) ([]domain.Contact, int64, error) {
	return f.listFn(ctx, table, params)
}

type fakeTemplateRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.EmailTemplate, error)
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.EmailTemplate) error { return nil }

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	return nil, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, t *domain.EmailTemplate) error { return nil }
func (f *fakeTemplateRepo) Delete(ctx context.Context, id string) error               { return nil }

type fakeProfileRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Profile, error)
}

func (f *fakeProfileRepo) Create(ctx context.Context, p *domain.Profile) error { return nil }

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeProfileRepo) List(ctx context.Context) ([]domain.Profile, error) { return nil, nil }
func (f *fakeProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	return nil
}
func (f *fakeProfileRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
	return f.dispatchFn(ctx, p, msg)
}

type memoryProgressStore struct {
	mu      sync.Mutex
	entries map[string]domain.BulkProgress
	setErr  error
}

func newMemoryProgressStore() *memoryProgressStore {
	return &memoryProgressStore{entries: map[string]domain.BulkProgress{}}
}

func (m *memoryProgressStore) Set(ctx context.Context, progress domain.BulkProgress) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[progress.OperationID] = progress
	return nil
}

func (m *memoryProgressStore) Get(ctx context.Context, operationID string) (*domain.BulkProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	progress, ok := m.entries[operationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &progress, nil
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		ID:                "profile-1",
		Name:              "Main",
		ContactsTableName: "contacts",
		Providers: domain.ProviderList{
			{
				ID:   "prov-1",
				Type: domain.ProviderSMTP,
				SMTP: &domain.SMTPConfig{Host: "mail.test", Port: "2525", From: "noreply@acme.test"},
			},
		},
	}
}

func testTemplate() *domain.EmailTemplate {
	return &domain.EmailTemplate{
		ID:          "tpl-1",
		Name:        "Welcome",
		Subject:     "Hi {{name}}",
		HTMLContent: "<p>{{name}}</p>",
	}
}

func testContacts() []domain.Contact {
	return []domain.Contact{
		{ID: "c-1", Name: "Bob", EmailID: "bob@test.com"},
		{ID: "c-2", Name: "Eve", EmailID: "eve@test.com"},
	}
}

func newTestBulkSender(
	t *testing.T,
	contacts repository.ContactRepository,
	dispatcher Dispatcher,
	store ProgressStore,
) *BulkSendService {
	t.Helper()

	svc, err := NewBulkSendService(
		contacts,
		&fakeTemplateRepo{getByIDFn: func(ctx context.Context, id string) (*domain.EmailTemplate, error) {
			if id != "tpl-1" {
				return nil, domain.ErrNotFound
			}
			return testTemplate(), nil
		}},
		&fakeProfileRepo{getByIDFn: func(ctx context.Context, id string) (*domain.Profile, error) {
			if id != "profile-1" {
				return nil, domain.ErrNotFound
			}
			return testProfile(), nil
		}},
		dispatcher,
		store,
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("NewBulkSendService() error = %v", err)
	}

	// Run synchronously so assertions see the finished state.
	svc.launch = func(fn func()) { fn() }
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestBulkSendHappyPath(t *testing.T) {
	t.Parallel()

	patches := map[string]repository.DeliveryPatch{}
	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			if table != "contacts" {
				t.Fatalf("table = %q, want contacts", table)
			}
			return testContacts(), nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			patches[id] = patch
			return nil
		},
	}

	var rendered []domain.EmailMessage
	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			rendered = append(rendered, msg)
			return domain.SendResult{Success: true, MessageID: "m-" + msg.To}
		},
	}

	store := newMemoryProgressStore()
	svc := newTestBulkSender(t, contacts, dispatcher, store)

	var snapshots []domain.BulkProgress
	initial, err := svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1", "c-2"},
		ProfileID:  "profile-1",
		Observer:   func(p domain.BulkProgress) { snapshots = append(snapshots, p) },
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if initial.Total != 2 {
		t.Fatalf("Total = %d, want 2", initial.Total)
	}

	final, err := svc.Progress(context.Background(), initial.OperationID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if final.Status != domain.BulkDone {
		t.Fatalf("Status = %s, want done", final.Status)
	}
	if final.Sent != 2 || final.Failed != 0 || final.Delivered != 2 {
		t.Fatalf("final = %+v", final)
	}
	if final.Sent+final.Failed != final.Total {
		t.Fatalf("sent+failed = %d, want %d", final.Sent+final.Failed, final.Total)
	}

	if len(rendered) != 2 {
		t.Fatalf("dispatched %d messages, want 2", len(rendered))
	}
	if rendered[0].Subject != "Hi Bob" || rendered[0].HTML != "<p>Bob</p>" {
		t.Fatalf("rendered[0] = %+v", rendered[0])
	}

	patch, ok := patches["c-1"]
	if !ok {
		t.Fatal("c-1 delivery should be persisted")
	}
	if patch.Status != domain.DeliverySent {
		t.Fatalf("status = %s, want sent", patch.Status)
	}
	if patch.LastSentAt == nil || patch.NoOfTimeSent == nil || *patch.NoOfTimeSent != 1 {
		t.Fatalf("patch = %+v", patch)
	}
	if len(patch.TemplateUsed) != 1 || patch.TemplateUsed[0].Name != "Welcome" || patch.TemplateUsed[0].Used != 1 {
		t.Fatalf("template usage = %+v", patch.TemplateUsed)
	}

	if len(snapshots) == 0 {
		t.Fatal("observer should receive progress snapshots")
	}
}

func TestBulkSendRepeatTemplateBumpsUsage(t *testing.T) {
	t.Parallel()

	used := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	contact := domain.Contact{
		ID:           "c-1",
		Name:         "Bob",
		EmailID:      "bob@test.com",
		NoOfTimeSent: 2,
		TemplateUsed: domain.TemplateUsageList{
			{Name: "Welcome", Used: 2, LastUsedAt: &used},
			{Name: "Promo", Used: 1, LastUsedAt: &used},
		},
	}

	var got repository.DeliveryPatch
	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return []domain.Contact{contact}, nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			got = patch
			return nil
		},
	}

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			return domain.SendResult{Success: true}
		},
	}

	svc := newTestBulkSender(t, contacts, dispatcher, newMemoryProgressStore())

	if _, err := svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1"},
		ProfileID:  "profile-1",
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(got.TemplateUsed) != 2 {
		t.Fatalf("usage entries = %d, want 2 (no duplicates)", len(got.TemplateUsed))
	}
	if got.TemplateUsed[0].Name != "Welcome" || got.TemplateUsed[0].Used != 3 {
		t.Fatalf("welcome usage = %+v", got.TemplateUsed[0])
	}
	if got.NoOfTimeSent == nil || *got.NoOfTimeSent != 3 {
		t.Fatalf("no_of_time_sent = %v, want 3", got.NoOfTimeSent)
	}
}

func TestBulkSendDispatchFailureRecordsReason(t *testing.T) {
	t.Parallel()

	var got repository.DeliveryPatch
	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return testContacts()[:1], nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			got = patch
			return nil
		},
	}

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			return domain.SendResult{Success: false, Error: "smtp recipient rejected"}
		},
	}

	store := newMemoryProgressStore()
	svc := newTestBulkSender(t, contacts, dispatcher, store)

	initial, err := svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1"},
		ProfileID:  "profile-1",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got.Status != domain.DeliveryFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailureReason == nil || *got.FailureReason != "smtp recipient rejected" {
		t.Fatalf("failure reason = %v", got.FailureReason)
	}

	final, err := svc.Progress(context.Background(), initial.OperationID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if final.Sent != 0 || final.Failed != 1 || final.Delivered != 0 {
		t.Fatalf("final = %+v", final)
	}
}

func TestBulkSendPersistenceFailureAfterDelivery(t *testing.T) {
	t.Parallel()

	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return testContacts()[:1], nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			return errors.New("connection reset")
		},
	}

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			return domain.SendResult{Success: true, MessageID: "m-1"}
		},
	}

	store := newMemoryProgressStore()
	svc := newTestBulkSender(t, contacts, dispatcher, store)

	initial, err := svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1"},
		ProfileID:  "profile-1",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final, err := svc.Progress(context.Background(), initial.OperationID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if final.Failed != 1 || final.Sent != 0 {
		t.Fatalf("final = %+v, want failed=1 sent=0", final)
	}
	if final.Delivered != 1 {
		t.Fatalf("delivered = %d, want 1 (provider accepted the message)", final.Delivered)
	}
	if final.Sent+final.Failed != final.Total {
		t.Fatalf("sent+failed = %d, want %d", final.Sent+final.Failed, final.Total)
	}
}

func TestBulkSendMissingContactCountsFailed(t *testing.T) {
	t.Parallel()

	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return testContacts()[:1], nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			return nil
		},
	}

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			return domain.SendResult{Success: true}
		},
	}

	store := newMemoryProgressStore()
	svc := newTestBulkSender(t, contacts, dispatcher, store)

	initial, err := svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1", "c-missing"},
		ProfileID:  "profile-1",
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	final, err := svc.Progress(context.Background(), initial.OperationID)
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if final.Sent != 1 || final.Failed != 1 {
		t.Fatalf("final = %+v", final)
	}
}

func TestBulkSendPreconditions(t *testing.T) {
	t.Parallel()

	dispatchCalled := false
	updateCalled := false
	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return testContacts(), nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			updateCalled = true
			return nil
		},
	}
	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			dispatchCalled = true
			return domain.SendResult{Success: true}
		},
	}

	store := newMemoryProgressStore()
	svc := newTestBulkSender(t, contacts, dispatcher, store)

	tests := []struct {
		name string
		req  BulkSendRequest
	}{
		{
			name: "missing template id",
			req:  BulkSendRequest{TableName: "contacts", ContactIDs: []string{"c-1"}, ProfileID: "profile-1"},
		},
		{
			name: "zero contact ids",
			req:  BulkSendRequest{TableName: "contacts", TemplateID: "tpl-1", ProfileID: "profile-1"},
		},
		{
			name: "empty table name",
			req:  BulkSendRequest{TemplateID: "tpl-1", ContactIDs: []string{"c-1"}, ProfileID: "profile-1"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Start(context.Background(), tc.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Start() error = %v, want ErrValidation", err)
			}
		})
	}

	if dispatchCalled {
		t.Fatal("no dispatch may happen when preconditions fail")
	}
	if updateCalled {
		t.Fatal("no contact row may change when preconditions fail")
	}
	if len(store.entries) != 0 {
		t.Fatal("no progress entry may exist when preconditions fail")
	}
}

func TestBulkSendProfileWithoutProviderRejected(t *testing.T) {
	t.Parallel()

	contacts := &fakeContactRepo{
		fetchByIDsFn: func(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
			return testContacts(), nil
		},
		updateDeliveryFn: func(ctx context.Context, table string, id string, patch repository.DeliveryPatch) error {
			t.Fatal("no contact row may change without a provider")
			return nil
		},
	}
	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
			t.Fatal("no dispatch may happen without a provider")
			return domain.SendResult{}
		},
	}

	svc, err := NewBulkSendService(
		contacts,
		&fakeTemplateRepo{getByIDFn: func(ctx context.Context, id string) (*domain.EmailTemplate, error) {
			return testTemplate(), nil
		}},
		&fakeProfileRepo{getByIDFn: func(ctx context.Context, id string) (*domain.Profile, error) {
			return &domain.Profile{ID: id, Name: "Empty", ContactsTableName: "contacts"}, nil
		}},
		dispatcher,
		newMemoryProgressStore(),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("NewBulkSendService() error = %v", err)
	}
	svc.launch = func(fn func()) { fn() }

	_, err = svc.Start(context.Background(), BulkSendRequest{
		TableName:  "contacts",
		TemplateID: "tpl-1",
		ContactIDs: []string{"c-1"},
		ProfileID:  "profile-1",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Start() error = %v, want ErrValidation", err)
	}
	if !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("Start() error = %v, want ErrNoProvider", err)
	}
}
