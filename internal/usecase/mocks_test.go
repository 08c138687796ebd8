package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xavierca1/gymcrm-sync/internal/infra/lock"
	"github.com/xavierca1/gymcrm-sync/internal/infra/rowstore"
)

// MockCRM
type MockCRM struct {
	mock.Mock
}

func (m *MockCRM) ListPipelines(ctx context.Context) ([]entity.Pipeline, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Pipeline), args.Error(1)
}

func (m *MockCRM) ListOpportunities(ctx context.Context, pipelineID string) ([]entity.Opportunity, error) {
	args := m.Called(ctx, pipelineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Opportunity), args.Error(1)
}

func (m *MockCRM) GetContact(ctx context.Context, contactID string) (*entity.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Contact), args.Error(1)
}

func (m *MockCRM) ListUsers(ctx context.Context) ([]entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockDocuments
type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) CreateFromTemplate(ctx context.Context, templateID, name, parentFolder string) (*entity.Document, error) {
	args := m.Called(ctx, templateID, name, parentFolder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Document), args.Error(1)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// deniedLocker nunca entrega o lock.
type deniedLocker struct{}

func (deniedLocker) TryLock(context.Context, string, time.Duration) (func(), error) {
	return nil, lock.ErrNotAcquired
}

// flakyStore falha a operação escolhida na tabela escolhida.
type flakyStore struct {
	*rowstore.MemoryStore
	failDeleteOn string
	failAppendOn string
}

var errInjected = errors.New("falha injetada")

func (s *flakyStore) DeleteRows(ctx context.Context, table string, rows []int) error {
	if table == s.failDeleteOn {
		return errInjected
	}
	return s.MemoryStore.DeleteRows(ctx, table, rows)
}

func (s *flakyStore) WriteRows(ctx context.Context, table string, records []entity.Record, opts entity.WriteOptions) error {
	if table == s.failAppendOn && opts.Mode == entity.WriteAppend {
		return errInjected
	}
	return s.MemoryStore.WriteRows(ctx, table, records, opts)
}

var testNow = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

func testCalendar() Calendar {
	return Calendar{Location: time.UTC, Now: func() time.Time { return testNow }}
}

// fixture monta as peças do core sobre um row store em memória.
type fixture struct {
	store     entity.RowStore
	mem       *rowstore.MemoryStore
	tables    entity.Tables
	rows      *RowWriter
	ledger    *AccountabilityLedger
	effects   *StatusEffects
	archiver  *Archiver
	pricing   *PricingView
	crm       *MockCRM
	docs      *MockDocuments
	publisher *MockPublisher
	calendar  Calendar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := rowstore.NewMemoryStore()
	return newFixtureWithStore(t, mem, mem)
}

func newFixtureWithStore(t *testing.T, store entity.RowStore, mem *rowstore.MemoryStore) *fixture {
	t.Helper()
	ctx := context.Background()
	tables := entity.DefaultTables()
	for _, schema := range tables.All() {
		require.NoError(t, store.EnsureTable(ctx, schema))
	}

	calendar := testCalendar()
	locker := lock.NewLocalLocker()
	rows := NewRowWriter(store, locker, time.Second)
	docs := new(MockDocuments)
	ledger := &AccountabilityLedger{
		Store:      store,
		Schema:     tables.Accountability,
		Documents:  docs,
		TemplateID: "tpl",
		Calendar:   calendar,
	}
	return &fixture{
		store:  store,
		mem:    mem,
		tables: tables,
		rows:   rows,
		ledger: ledger,
		effects: &StatusEffects{
			Calendar:             calendar,
			ChallengeLengthWeeks: 6,
			Ledger:               ledger,
			Locker:               locker,
			LockWait:             time.Second,
			Store:                store,
			CRM:                  tables.CRM,
		},
		archiver:  NewArchiver(store, tables, rows),
		pricing:   NewPricingView(store, tables, rows),
		crm:       new(MockCRM),
		docs:      docs,
		publisher: new(MockPublisher),
		calendar:  calendar,
	}
}

func (f *fixture) seedCRM(t *testing.T, leads ...*entity.Lead) {
	t.Helper()
	records := make([]entity.Record, 0, len(leads))
	for _, l := range leads {
		records = append(records, l.ToRecord())
	}
	require.NoError(t, f.store.WriteRows(context.Background(), f.tables.CRM.Name, records, f.tables.CRM.WriteOptions(entity.WriteAppend)))
}

func (f *fixture) crmLeads(t *testing.T) []*entity.Lead {
	return f.leadsIn(t, f.tables.CRM)
}

func (f *fixture) leadsIn(t *testing.T, schema entity.TableSchema) []*entity.Lead {
	t.Helper()
	records, err := f.store.ReadRows(context.Background(), schema.Name, schema.ReadOptions())
	require.NoError(t, err)
	leads := make([]*entity.Lead, 0, len(records))
	for _, rec := range records {
		leads = append(leads, entity.LeadFromRecord(rec))
	}
	return leads
}

func (f *fixture) ledgerRows(t *testing.T) []*entity.LedgerEntry {
	t.Helper()
	records, err := f.store.ReadRows(context.Background(), f.tables.Accountability.Name, f.tables.Accountability.ReadOptions())
	require.NoError(t, err)
	out := make([]*entity.LedgerEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, entity.LedgerEntryFromRecord(rec))
	}
	return out
}

func (f *fixture) pricingRows(t *testing.T) []*entity.PricingRow {
	t.Helper()
	records, err := f.store.ReadRows(context.Background(), f.tables.Pricing.Name, f.tables.Pricing.ReadOptions())
	require.NoError(t, err)
	out := make([]*entity.PricingRow, 0, len(records))
	for _, rec := range records {
		out = append(out, entity.PricingRowFromRecord(rec))
	}
	return out
}

func (f *fixture) allowDocuments() {
	f.docs.On("CreateFromTemplate", mock.Anything, "tpl", mock.Anything, mock.Anything).
		Return(&entity.Document{ID: "doc-1", URL: "https://files.example/doc-1"}, nil)
}
