package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type SyncReport struct {
	PipelineID          string        `json:"pipeline_id"`
	Opportunities       int           `json:"opportunities"`
	Kept                int           `json:"kept"`
	Archived            int           `json:"archived"`
	ArchiveFailed       int           `json:"archive_failed"`
	Created             int           `json:"created"`
	StatusChanges       int           `json:"status_changes"`
	LedgerRegistrations int           `json:"ledger_registrations"`
	Skipped             int           `json:"skipped"`
	LockErrors          int           `json:"lock_errors"`
	Staff               int           `json:"staff"`
	Duration            time.Duration `json:"duration"`
}

// SyncHighLevelUseCase alinha o CRM local com o pipeline do HighLevel. O
// CRM só é reescrito no fim; qualquer falha dura antes disso aborta a
// execução e deixa o estado anterior intacto.
type SyncHighLevelUseCase struct {
	CRM        CRMGateway
	Store      entity.RowStore
	Tables     entity.Tables
	PipelineID string
	Rows       *RowWriter
	Effects    *StatusEffects
	Archiver   *Archiver
	Pricing    *PricingView
	Staff      *StaffDirectory
	Publisher  EventPublisher
	Calendar   Calendar
}

func NewSyncHighLevelUseCase(
	crm CRMGateway,
	store entity.RowStore,
	tables entity.Tables,
	pipelineID string,
	rows *RowWriter,
	effects *StatusEffects,
	archiver *Archiver,
	pricing *PricingView,
	publisher EventPublisher,
	calendar Calendar,
) *SyncHighLevelUseCase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &SyncHighLevelUseCase{
		CRM:        crm,
		Store:      store,
		Tables:     tables,
		PipelineID: pipelineID,
		Rows:       rows,
		Effects:    effects,
		Archiver:   archiver,
		Pricing:    pricing,
		Staff:      &StaffDirectory{CRM: crm, Store: store, Schema: tables.Staff},
		Publisher:  publisher,
		Calendar:   calendar,
	}
}

type keptLead struct {
	lead        *entity.Lead
	opportunity *entity.Opportunity
}

func (uc *SyncHighLevelUseCase) Execute(ctx context.Context) (*SyncReport, error) {
	started := time.Now()
	report := &SyncReport{}

	// 1. Pipeline da academia
	pipeline, err := uc.gymPipeline(ctx)
	if err != nil {
		return nil, err
	}
	report.PipelineID = pipeline.ID

	// 2. Equipe da location
	if uc.Staff != nil {
		if report.Staff, err = uc.Staff.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	// 3. Oportunidades (todas as páginas)
	opportunities, err := uc.CRM.ListOpportunities(ctx, pipeline.ID)
	if err != nil {
		return nil, crmError("falha ao listar oportunidades", err)
	}
	report.Opportunities = len(opportunities)
	log.Printf("🔄 [sync] %d oportunidades no pipeline %s", len(opportunities), pipeline.ID)

	byContact := map[string]*entity.Opportunity{}
	for i := range opportunities {
		opp := &opportunities[i]
		if opp.StageName == "" {
			opp.StageName = pipeline.StageName(opp.StageID)
		}
		id := strings.TrimSpace(opp.Contact.ID)
		if id == "" {
			log.Printf("⚠️ [sync] oportunidade %s sem contato associado, ignorada", opp.ID)
			report.Skipped++
			continue
		}
		byContact[id] = opp
	}

	// 4. CRM local
	if err := uc.Store.EnsureTable(ctx, uc.Tables.CRM); err != nil {
		return nil, storeError("falha ao preparar "+uc.Tables.CRM.Name, err)
	}
	records, err := uc.Store.ReadRows(ctx, uc.Tables.CRM.Name, uc.Tables.CRM.ReadOptions())
	if err != nil {
		return nil, storeError("falha ao ler "+uc.Tables.CRM.Name, err)
	}

	// 5. KEEP x ARCHIVE
	known := map[string]bool{}
	var keep []keptLead
	var toArchive []*entity.Lead
	for _, rec := range records {
		lead := entity.LeadFromRecord(rec)
		id := strings.TrimSpace(lead.GHLContactID)
		if id != "" {
			known[id] = true
		}
		opp, ok := byContact[id]
		if !ok || opp.StageName == entity.StageArchive {
			toArchive = append(toArchive, lead)
			continue
		}
		keep = append(keep, keptLead{lead: lead, opportunity: opp})
	}
	log.Printf("🔄 [sync] %d clientes mantidos; %d serão arquivados", len(keep), len(toArchive))

	// 6. Status dos mantidos
	var events []entity.LeadEvent
	for _, k := range keep {
		event, err := uc.updateLeadOnSync(ctx, k.lead, k.opportunity, report)
		if err != nil {
			return nil, err
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	// 7. Arquivamento em lote
	if len(toArchive) > 0 {
		if err := uc.Archiver.Archive(ctx, toArchive); err != nil {
			if ErrorCode(err) != CodeArchiveIncomplete {
				return nil, err
			}
			report.ArchiveFailed = len(toArchive)
			for _, lead := range toArchive {
				keep = append(keep, keptLead{lead: lead})
			}
		} else {
			report.Archived = len(toArchive)
		}
	}

	// 8. Oportunidades que ainda não estão no CRM
	for i := range opportunities {
		opp := &opportunities[i]
		id := strings.TrimSpace(opp.Contact.ID)
		if id == "" || known[id] || byContact[id] != opp {
			continue
		}
		known[id] = true
		if opp.StageName == entity.StageArchive {
			continue
		}
		lead, event, err := uc.materialize(ctx, opp, report)
		if err != nil {
			return nil, err
		}
		keep = append(keep, keptLead{lead: lead, opportunity: opp})
		if event != nil {
			events = append(events, *event)
		}
	}

	// 9. Reescrita completa do CRM
	final := make([]*entity.Lead, 0, len(keep))
	for _, k := range keep {
		final = append(final, k.lead)
	}
	for id := range byContact {
		known[id] = true
	}
	// Contatos que o sync nunca viu foram criados por um webhook durante a
	// execução e ficam.
	createdMeanwhile := func(l *entity.Lead) bool {
		id := strings.TrimSpace(l.GHLContactID)
		return id != "" && !known[id]
	}
	if err := uc.Rows.ReplaceAll(ctx, uc.Tables.CRM, final, createdMeanwhile); err != nil {
		return nil, err
	}
	report.Kept = len(final)

	if uc.Pricing != nil {
		if _, err := uc.Pricing.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	for _, event := range events {
		if err := uc.Publisher.PublishLeadEvent(ctx, event); err != nil {
			log.Printf("⚠️ [sync] evento de %s %s não publicado: %v", event.FirstName, event.LastName, err)
		}
	}

	report.Duration = time.Since(started)
	log.Printf("✅ [sync] concluído em %s: %d mantidos, %d arquivados, %d novos, %d mudanças de status",
		report.Duration.Round(time.Millisecond), report.Kept, report.Archived, report.Created, report.StatusChanges)
	return report, nil
}

// gymPipeline usa o pipeline configurado ou procura o que tem o estágio
// "New Client - Challenger".
func (uc *SyncHighLevelUseCase) gymPipeline(ctx context.Context) (*entity.Pipeline, error) {
	pipelines, err := uc.CRM.ListPipelines(ctx)
	if err != nil {
		return nil, crmError("falha ao listar pipelines", err)
	}
	pipeline := FindGymPipeline(pipelines, uc.PipelineID)
	if pipeline == nil {
		return nil, &TechnicalError{Code: CodeCRMUnavailable, Message: "nenhum pipeline da academia encontrado nesta location"}
	}
	log.Printf("🔄 [sync] pipeline da academia: %s (%s)", pipeline.Name, pipeline.ID)
	return pipeline, nil
}

func FindGymPipeline(pipelines []entity.Pipeline, pipelineID string) *entity.Pipeline {
	for i := range pipelines {
		p := &pipelines[i]
		if pipelineID != "" {
			if p.ID == pipelineID {
				return p
			}
			continue
		}
		if p.HasStage(entity.StageNewClientChallenger) {
			return p
		}
	}
	return nil
}

// updateLeadOnSync aplica o status do HighLevel a um lead mantido. Sem
// mudança de status e sem reação pendente, não faz nada.
func (uc *SyncHighLevelUseCase) updateLeadOnSync(ctx context.Context, lead *entity.Lead, opp *entity.Opportunity, report *SyncReport) (*entity.LeadEvent, error) {
	previous := lead.Status
	decision := ResolveStatus(StatusSource{PipelineStage: opp.StageName, OpportunityStatus: opp.Status}, PathSync, previous)

	changed := decision.Changed(previous)
	if changed {
		log.Printf("🔄 [sync] %s: %q -> %q", lead.FullName(), previous, decision.Status)
		lead.Status = decision.Status
		report.StatusChanges++
	}

	if !changed && !uc.Effects.Pending(lead) {
		return nil, nil
	}

	result, err := uc.Effects.Apply(ctx, lead)
	if err != nil {
		if !IsLockError(err) {
			return nil, fmt.Errorf("reações de status de %s: %w", lead.FullName(), err)
		}
		report.LockErrors++
	}
	if result.LedgerRegistered {
		report.LedgerRegistrations++
	}

	if !changed {
		return nil, nil
	}
	event := NewLeadEvent(PathSync, previous, lead, uc.Calendar.now())
	return &event, nil
}

// materialize cria o lead local de uma oportunidade nova. A oportunidade
// não traz todos os campos do contato, então o contato é buscado à parte.
func (uc *SyncHighLevelUseCase) materialize(ctx context.Context, opp *entity.Opportunity, report *SyncReport) (*entity.Lead, *entity.LeadEvent, error) {
	contact, err := uc.CRM.GetContact(ctx, opp.Contact.ID)
	if err != nil {
		return nil, nil, crmError("falha ao buscar contato "+opp.Contact.ID, err)
	}
	log.Printf("➕ [sync] adicionando %s %s ao CRM", contact.FirstName, contact.LastName)

	lead := &entity.Lead{
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		Email:        sanitizeEmail(contact.Email),
		Phone:        contact.Phone,
		LeadSource:   firstNonEmpty(contact.Source, opp.Source),
		GHLContactID: firstNonEmpty(contact.ID, opp.Contact.ID),
	}
	lead.LeadGenerationDate = uc.Calendar.Datestamp()
	if added, ok := entity.ParseDate(contact.DateAdded, uc.Calendar.location()); ok {
		lead.LeadGenerationDate = uc.Calendar.Format(added)
	}

	event, err := uc.updateLeadOnSync(ctx, lead, opp, report)
	if err != nil {
		return nil, nil, err
	}
	report.Created++
	return lead, event, nil
}

func crmError(msg string, err error) error {
	var te *TechnicalError
	if errors.As(err, &te) {
		return err
	}
	return &TechnicalError{Code: CodeCRMUnavailable, Message: msg, Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
