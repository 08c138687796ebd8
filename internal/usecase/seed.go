package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// SeedRowCleaner apaga a linha de exemplo ("Jim Jonas", sem contact ID)
// que o setup deixa na primeira linha de dados do CRM.
type SeedRowCleaner struct {
	Schema entity.TableSchema
	Rows   *RowWriter
}

// Clean não toca na linha se ela for o próprio lead que acabou de ser
// reconciliado.
func (c *SeedRowCleaner) Clean(ctx context.Context, reconciled *entity.Lead) (bool, error) {
	if reconciled != nil && reconciled.NameKey() == "jim jonas" {
		return false, nil
	}

	first := c.Schema.FirstDataRow()
	removed, err := c.Rows.RemoveRows(ctx, c.Schema, func(rec entity.Record) bool {
		return rec.Row == first && entity.LeadFromRecord(rec).IsSeedRow()
	})
	if err != nil {
		return false, err
	}
	if len(removed) > 0 {
		log.Printf("🧹 linha de exemplo removida do %s", c.Schema.Name)
	}
	return len(removed) > 0, nil
}
