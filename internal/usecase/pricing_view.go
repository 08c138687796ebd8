package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// PricingView mantém a tabela de preços derivada do CRM. A junção é pelo
// contact ID (nome completo para linhas antigas), e os preços digitados
// pelo dono são preservados.
type PricingView struct {
	Store  entity.RowStore
	Tables entity.Tables
	Rows   *RowWriter
}

func NewPricingView(store entity.RowStore, tables entity.Tables, rows *RowWriter) *PricingView {
	return &PricingView{Store: store, Tables: tables, Rows: rows}
}

// Refresh reescreve a tabela de preços a partir do CRM e devolve quantas
// linhas ficaram visíveis.
func (v *PricingView) Refresh(ctx context.Context) (int, error) {
	if err := v.Store.EnsureTable(ctx, v.Tables.Pricing); err != nil {
		return 0, storeError("falha ao criar "+v.Tables.Pricing.Name, err)
	}

	release, err := v.Rows.lock(ctx, v.Tables.Pricing.Name)
	if err != nil {
		return 0, err
	}
	defer release()

	crmRecords, err := v.Store.ReadRows(ctx, v.Tables.CRM.Name, v.Tables.CRM.ReadOptions())
	if err != nil {
		return 0, storeError("falha ao ler "+v.Tables.CRM.Name, err)
	}
	pricingRecords, err := v.Store.ReadRows(ctx, v.Tables.Pricing.Name, v.Tables.Pricing.ReadOptions())
	if err != nil {
		return 0, storeError("falha ao ler "+v.Tables.Pricing.Name, err)
	}

	previous := make(map[string]*entity.PricingRow, len(pricingRecords))
	for _, rec := range pricingRecords {
		row := entity.PricingRowFromRecord(rec)
		previous[row.JoinKey()] = row
	}

	rows := make([]entity.Record, 0, len(crmRecords))
	visible := 0
	for _, rec := range crmRecords {
		lead := entity.LeadFromRecord(rec)
		row := previous[entity.LeadJoinKey(lead)]
		if row == nil {
			row = previous["name:"+lead.NameKey()]
		}
		if row != nil {
			delete(previous, row.JoinKey())
		} else {
			row = &entity.PricingRow{}
		}

		row.Status = lead.Status
		row.FirstName = lead.FirstName
		row.LastName = lead.LastName
		row.GHLContactID = lead.GHLContactID
		row.Visible = !entity.HiddenInPricing[lead.Status]
		if row.Visible {
			visible++
		}
		out := row.ToRecord()
		out.Row = 0
		rows = append(rows, out)
	}
	if len(previous) > 0 {
		log.Printf("⚠️ [pricing] %d linhas sem lead no CRM foram descartadas", len(previous))
	}

	if err := v.Store.WriteRows(ctx, v.Tables.Pricing.Name, rows, v.Tables.Pricing.WriteOptions(entity.WriteClear)); err != nil {
		return 0, storeError("falha ao gravar "+v.Tables.Pricing.Name, err)
	}
	log.Printf("✅ [pricing] view atualizada: %d linhas, %d visíveis", len(rows), visible)
	return visible, nil
}
