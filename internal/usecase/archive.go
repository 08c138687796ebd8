package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// Archiver move leads do CRM para o arquivo. É uma saga de três passos:
// acrescenta no arquivo, remove do CRM, remove da tabela de preços. As
// remoções usam a identidade exata de cada lead (ID, ou nome para linhas
// sem ID), então uma linha homônima de outro contato nunca some. Se um
// passo falha, os anteriores são desfeitos e o erro volta como
// ARCHIVE_INCOMPLETE para o sync tentar de novo.
type Archiver struct {
	Store  entity.RowStore
	Tables entity.Tables
	Rows   *RowWriter
}

func NewArchiver(store entity.RowStore, tables entity.Tables, rows *RowWriter) *Archiver {
	return &Archiver{Store: store, Tables: tables, Rows: rows}
}

func (a *Archiver) Archive(ctx context.Context, leads []*entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	log.Printf("📦 [archive] arquivando %d clientes", len(leads))

	if err := a.Store.EnsureTable(ctx, a.Tables.Archive); err != nil {
		return a.incomplete(storeError("falha ao criar "+a.Tables.Archive.Name, err))
	}

	var appended []*entity.Lead
	var removedCRM []entity.Record

	txn := NewTransaction("archive")

	txn.AddStep("append_archive",
		func(ctx context.Context) error {
			var err error
			appended, err = a.appendMissing(ctx, leads)
			return err
		},
		func(ctx context.Context) error {
			if len(appended) == 0 {
				return nil
			}
			_, err := a.Rows.RemoveRows(ctx, a.Tables.Archive, a.appendedMatcher(appended))
			return err
		},
	)

	txn.AddStep("remove_crm",
		func(ctx context.Context) error {
			var err error
			removedCRM, err = a.Rows.RemoveLeads(ctx, a.Tables.CRM, leads)
			return err
		},
		func(ctx context.Context) error {
			return a.Rows.AppendRows(ctx, a.Tables.CRM, withoutRow(removedCRM))
		},
	)

	txn.AddStep("remove_pricing",
		func(ctx context.Context) error {
			_, err := a.Rows.RemoveLeads(ctx, a.Tables.Pricing, leads)
			return err
		},
		nil,
	)

	if err := txn.Execute(ctx); err != nil {
		return a.incomplete(err)
	}
	log.Printf("✅ [archive] %d clientes arquivados (%d já estavam no arquivo)", len(leads), len(leads)-len(appended))
	return nil
}

// appendMissing acrescenta ao arquivo só quem ainda não está lá. Uma
// execução anterior interrompida pode ter deixado o lead nos dois lugares.
func (a *Archiver) appendMissing(ctx context.Context, leads []*entity.Lead) ([]*entity.Lead, error) {
	existing, err := a.Store.ReadRows(ctx, a.Tables.Archive.Name, a.Tables.Archive.ReadOptions())
	if err != nil {
		return nil, storeError("falha ao ler "+a.Tables.Archive.Name, err)
	}
	archived := map[string]bool{}
	for _, rec := range existing {
		archived[entity.RecordKey(rec)] = true
	}

	var toAppend []*entity.Lead
	var records []entity.Record
	for _, lead := range leads {
		key := entity.LeadJoinKey(lead)
		if archived[key] {
			continue
		}
		archived[key] = true
		rec := lead.ToRecord()
		rec.Row = 0
		records = append(records, rec)
		toAppend = append(toAppend, lead)
	}
	if err := a.Rows.AppendRows(ctx, a.Tables.Archive, records); err != nil {
		return nil, err
	}
	return toAppend, nil
}

// appendedMatcher casa só as linhas acrescentadas por esta execução, já que
// appendMissing nunca acrescenta uma chave que o arquivo já tinha.
func (a *Archiver) appendedMatcher(appended []*entity.Lead) RowMatcher {
	keys := map[string]bool{}
	for _, lead := range appended {
		keys[entity.LeadJoinKey(lead)] = true
	}
	return func(rec entity.Record) bool {
		return keys[entity.RecordKey(rec)]
	}
}

func (a *Archiver) incomplete(err error) error {
	log.Printf("❌ [archive] arquivamento incompleto, será refeito no próximo sync: %v", err)
	return &TechnicalError{
		Code:    CodeArchiveIncomplete,
		Message: "arquivamento incompleto",
		Err:     err,
	}
}

func withoutRow(records []entity.Record) []entity.Record {
	out := make([]entity.Record, 0, len(records))
	for _, rec := range records {
		c := rec.Clone()
		c.Row = 0
		out = append(out, c)
	}
	return out
}
