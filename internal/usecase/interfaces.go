package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// CRMGateway é o CRM externo (HighLevel).
type CRMGateway interface {
	ListPipelines(ctx context.Context) ([]entity.Pipeline, error)
	ListOpportunities(ctx context.Context, pipelineID string) ([]entity.Opportunity, error)
	GetContact(ctx context.Context, contactID string) (*entity.Contact, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
}

// Locker é um mutex com espera limitada. Se o lock não sair em wait, devolve
// erro e o chamador desiste sem mutar nada.
type Locker interface {
	TryLock(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

// DocumentProvisioner cria o arquivo de acompanhamento de um challenger a
// partir de um template.
type DocumentProvisioner interface {
	CreateFromTemplate(ctx context.Context, templateID, name, parentFolder string) (*entity.Document, error)
}

type EventPublisher interface {
	PublishLeadEvent(ctx context.Context, event entity.LeadEvent) error
}

// Chaves de lock compartilhadas entre webhook e sync.
const (
	LockKeyLedger = "gymcrm:ledger"
	LockKeyRows   = "gymcrm:rows:"
)

const DefaultLockWait = 30 * time.Second

// NoopPublisher é usado quando não há fila configurada.
type NoopPublisher struct{}

func (NoopPublisher) PublishLeadEvent(context.Context, entity.LeadEvent) error { return nil }
