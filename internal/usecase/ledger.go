package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// AccountabilityLedger registra challengers na tabela de accountability.
// O chamador precisa segurar o lock do ledger.
type AccountabilityLedger struct {
	Store      entity.RowStore
	Schema     entity.TableSchema
	Documents  DocumentProvisioner
	TemplateID string
	Calendar   Calendar
}

// Register acrescenta o lead ao ledger, a menos que já exista uma linha com
// o mesmo nome e a mesma data de início. Devolve false em duplicata.
func (l *AccountabilityLedger) Register(ctx context.Context, lead *entity.Lead) (bool, error) {
	entry := entity.NewLedgerEntry(lead)
	if entry.ChallengeStartDate == "" {
		entry.ChallengeStartDate = l.Calendar.Datestamp()
	}
	entry.ChallengeStartDate = l.Calendar.Normalize(entry.ChallengeStartDate)

	existing, err := l.Store.ReadRows(ctx, l.Schema.Name, entity.ReadOptions{
		HeaderRow: l.Schema.HeaderRow,
		FirstRow:  l.Schema.FirstDataRow(),
		Headers:   []string{"First Name", "Last Name", "Challenge Start Date"},
	})
	if err != nil {
		return false, storeError("falha ao ler "+l.Schema.Name, err)
	}

	key := entry.DedupKey()
	for _, rec := range existing {
		other := entity.LedgerEntryFromRecord(rec)
		other.ChallengeStartDate = l.Calendar.Normalize(other.ChallengeStartDate)
		if other.DedupKey() == key {
			log.Printf("⚠️ [duplicate] %s já está no accountability desde %s, não duplicado", lead.FullName(), entry.ChallengeStartDate)
			return false, nil
		}
	}

	l.provision(ctx, lead, entry)

	if err := l.Store.WriteRows(ctx, l.Schema.Name, []entity.Record{entry.ToRecord()}, l.Schema.WriteOptions(entity.WriteAppend)); err != nil {
		return false, storeError("falha ao gravar "+l.Schema.Name, err)
	}
	log.Printf("✅ %s adicionado ao accountability", lead.FullName())
	return true, nil
}

// provision cria a planilha do challenger. Falha aqui não impede o registro:
// o coach pode criar o arquivo à mão.
func (l *AccountabilityLedger) provision(ctx context.Context, lead *entity.Lead, entry *entity.LedgerEntry) {
	if l.Documents == nil || lead.ChallengerFile != "" {
		return
	}
	folder := ChallengerFolderName(lead, entry.ChallengeStartDate)
	doc, err := l.Documents.CreateFromTemplate(ctx, l.TemplateID, "Challenge Tracker "+folder, folder)
	if err != nil {
		log.Printf("⚠️ falha ao criar arquivo do challenger %s: %v", lead.FullName(), err)
		return
	}
	lead.ChallengerFile = doc.URL
	entry.ChallengerFile = doc.URL
}

// ChallengerFolderName monta "First Last MM/DD/YYYY".
func ChallengerFolderName(lead *entity.Lead, startDate string) string {
	return fmt.Sprintf("%s %s %s", strings.TrimSpace(lead.FirstName), strings.TrimSpace(lead.LastName), startDate)
}
