package usecase

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type WebhookLeadInput struct {
	APIKey string
	Body   []byte
}

type WebhookLeadOutput struct {
	Action           string        `json:"action"`
	Status           entity.Status `json:"status"`
	ContactID        string        `json:"contact_id,omitempty"`
	LedgerRegistered bool          `json:"ledger_registered"`
}

// ProcessWebhookLeadUseCase é a máquina de estados do webhook:
// AUTH_CHECK -> PARSE -> ENRICH -> STATUS_RESOLVE -> RECONCILE ->
// SIDE_EFFECTS -> RESPOND.
type ProcessWebhookLeadUseCase struct {
	APIKey    string
	Store     entity.RowStore
	Tables    entity.Tables
	CRM       CRMGateway
	Rows      *RowWriter
	Effects   *StatusEffects
	Archiver  *Archiver
	Pricing   *PricingView
	Seed      *SeedRowCleaner
	Publisher EventPublisher
	Calendar  Calendar
}

func NewProcessWebhookLeadUseCase(
	apiKey string,
	store entity.RowStore,
	tables entity.Tables,
	crm CRMGateway,
	rows *RowWriter,
	effects *StatusEffects,
	archiver *Archiver,
	pricing *PricingView,
	publisher EventPublisher,
	calendar Calendar,
) *ProcessWebhookLeadUseCase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ProcessWebhookLeadUseCase{
		APIKey:    apiKey,
		Store:     store,
		Tables:    tables,
		CRM:       crm,
		Rows:      rows,
		Effects:   effects,
		Archiver:  archiver,
		Pricing:   pricing,
		Seed:      &SeedRowCleaner{Schema: tables.CRM, Rows: rows},
		Publisher: publisher,
		Calendar:  calendar,
	}
}

func (uc *ProcessWebhookLeadUseCase) Execute(ctx context.Context, input WebhookLeadInput) (*WebhookLeadOutput, error) {
	// 1. AUTH_CHECK
	if uc.APIKey == "" || subtle.ConstantTimeCompare([]byte(input.APIKey), []byte(uc.APIKey)) != 1 {
		return nil, &DomainError{Code: CodeUnauthorized, Message: "Please provide API Key"}
	}

	// 2. PARSE
	payload, err := ParseWebhookLead(input.Body)
	if err != nil {
		return nil, &DomainError{Code: CodeInvalidPayload, Message: "payload inválido: " + err.Error()}
	}

	// 3. ENRICH: o HighLevel às vezes não manda o nome
	uc.enrich(ctx, payload)

	if errs := ValidateWebhookLead(payload); len(errs) > 0 {
		return nil, &DomainError{Code: CodeValidation, Message: validationMessage(errs)}
	}
	log.Printf("🔄 [webhook] lead %s (estágio %q, status %q)", payload.Name(), payload.PipelineStage, payload.Status)

	// 4. STATUS_RESOLVE contra o snapshot atual do CRM
	if err := uc.Store.EnsureTable(ctx, uc.Tables.CRM); err != nil {
		return nil, storeError("falha ao preparar "+uc.Tables.CRM.Name, err)
	}
	snapshot, err := uc.readSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	incoming := payload.ToLead()
	previous := entity.StatusNone
	if existing := FindLead(incoming, snapshot); existing != nil {
		previous = existing.Status
	}
	decision := ResolveStatus(payload.StatusSource(), PathWebhook, previous)
	incoming.Status = decision.Status
	if decision.Consultation != "" {
		incoming.ConsultationDate = uc.consultationDate(decision.Consultation)
	}

	// 5. RECONCILE
	archived := payload.PipelineStage == entity.StageArchive
	result := Reconcile(incoming, archived, snapshot)
	output := &WebhookLeadOutput{Action: result.Action.String(), Status: incoming.Status, ContactID: payload.ContactID}

	var stored *entity.Lead
	switch result.Action {
	case ActionArchive:
		if err := uc.Archiver.Archive(ctx, []*entity.Lead{result.Target}); err != nil {
			return nil, err
		}
		output.Status = result.Target.Status
	case ActionUpdate:
		log.Printf("✏️ [webhook] atualizando %s", result.Merged.FullName())
		if _, err := uc.Rows.UpdateRows(ctx, uc.Tables.CRM, []*entity.Lead{result.Merged}); err != nil {
			return nil, err
		}
		stored = result.Merged
	case ActionCreate:
		lead := result.Merged
		if lead.LeadGenerationDate == "" {
			lead.LeadGenerationDate = uc.Calendar.Datestamp()
		}
		var created bool
		stored, created, err = uc.Rows.InsertLead(ctx, uc.Tables.CRM, lead)
		if err != nil {
			return nil, err
		}
		if !created {
			output.Action = ActionUpdate.String()
		}
		log.Printf("➕ [webhook] %s gravado (%s)", stored.FullName(), output.Action)
	default:
		log.Printf("ℹ️ [webhook] %s arquivado no HighLevel e ausente do CRM, ignorado", payload.Name())
	}

	// 6. SIDE_EFFECTS
	if stored != nil {
		output.Status = stored.Status
		output.LedgerRegistered = uc.applyEffects(ctx, stored)
		if stored.Status != previous {
			uc.publish(ctx, previous, stored)
		}
	}
	if _, err := uc.Seed.Clean(ctx, stored); err != nil {
		log.Printf("⚠️ [webhook] falha ao remover linha de exemplo: %v", err)
	}
	if uc.Pricing != nil {
		if _, err := uc.Pricing.Refresh(ctx); err != nil {
			log.Printf("⚠️ [webhook] falha ao atualizar view de preços: %v", err)
		}
	}

	// 7. RESPOND
	return output, nil
}

func (uc *ProcessWebhookLeadUseCase) enrich(ctx context.Context, payload *WebhookLead) {
	if (payload.FirstName != "" && payload.LastName != "") || payload.ContactID == "" || uc.CRM == nil {
		return
	}
	contact, err := uc.CRM.GetContact(ctx, payload.ContactID)
	if err != nil {
		log.Printf("⚠️ [webhook] não foi possível buscar o contato %s no HighLevel: %v", payload.ContactID, err)
		return
	}
	if contact.FirstName != "" {
		payload.FirstName = contact.FirstName
	}
	if contact.LastName != "" {
		payload.LastName = contact.LastName
	}
	payload.FullName = payload.FirstName + " " + payload.LastName
}

func (uc *ProcessWebhookLeadUseCase) readSnapshot(ctx context.Context) ([]*entity.Lead, error) {
	records, err := uc.Store.ReadRows(ctx, uc.Tables.CRM.Name, uc.Tables.CRM.ReadOptions())
	if err != nil {
		return nil, storeError("falha ao ler "+uc.Tables.CRM.Name, err)
	}
	snapshot := make([]*entity.Lead, 0, len(records))
	for _, rec := range records {
		snapshot = append(snapshot, entity.LeadFromRecord(rec))
	}
	return snapshot, nil
}

// applyEffects reage ao status gravado e, se algo mudou no lead, grava de
// novo. Falha de lock só é logada: o lead fica pendente e o sync refaz.
func (uc *ProcessWebhookLeadUseCase) applyEffects(ctx context.Context, lead *entity.Lead) bool {
	result, err := uc.Effects.Apply(ctx, lead)
	if err != nil {
		log.Printf("❌ [webhook] reações de status de %s falharam: %v", lead.FullName(), err)
		return false
	}
	if result.Mutated() {
		if _, err := uc.Rows.UpdateRows(ctx, uc.Tables.CRM, []*entity.Lead{lead}); err != nil {
			log.Printf("❌ [webhook] falha ao gravar datas de %s: %v", lead.FullName(), err)
		}
	}
	return result.LedgerRegistered
}

func (uc *ProcessWebhookLeadUseCase) publish(ctx context.Context, previous entity.Status, lead *entity.Lead) {
	event := NewLeadEvent(PathWebhook, previous, lead, uc.Calendar.now())
	if err := uc.Publisher.PublishLeadEvent(ctx, event); err != nil {
		log.Printf("⚠️ [webhook] evento de %s não publicado: %v", lead.FullName(), err)
	}
}

func (uc *ProcessWebhookLeadUseCase) consultationDate(startTime string) string {
	t, ok := entity.ParseDate(startTime, uc.Calendar.location())
	if !ok {
		if t2, err := time.ParseInLocation("2006-01-02 15:04:05", startTime, uc.Calendar.location()); err == nil {
			return uc.Calendar.Format(t2)
		}
		log.Printf("⚠️ [webhook] data da consulta ilegível: %q", startTime)
		return ""
	}
	return uc.Calendar.Format(t)
}

func NewLeadEvent(path Path, previous entity.Status, lead *entity.Lead, at time.Time) entity.LeadEvent {
	return entity.LeadEvent{
		ID:             uuid.New().String(),
		Source:         path.String(),
		PreviousStatus: previous,
		Status:         lead.Status,
		FirstName:      lead.FirstName,
		LastName:       lead.LastName,
		Email:          lead.Email,
		Phone:          lead.Phone,
		GHLContactID:   lead.GHLContactID,
		ChallengerFile: lead.ChallengerFile,
		OccurredAt:     at,
	}
}
