package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// StaffDirectory espelha os usuários da location do HighLevel na tabela
// Staff.
type StaffDirectory struct {
	CRM    CRMGateway
	Store  entity.RowStore
	Schema entity.TableSchema
}

func (d *StaffDirectory) Refresh(ctx context.Context) (int, error) {
	users, err := d.CRM.ListUsers(ctx)
	if err != nil {
		return 0, &TechnicalError{Code: CodeCRMUnavailable, Message: "falha ao listar usuários", Err: err}
	}

	names := make([]string, 0, len(users))
	records := make([]entity.Record, 0, len(users))
	for i := range users {
		u := users[i]
		names = append(names, fmt.Sprintf("%s %s (%s)", u.FirstName, u.LastName, u.Email))
		records = append(records, u.ToStaffMember().ToRecord())
	}
	log.Printf("👥 [sync] usuários da location: %v", names)

	if err := d.Store.EnsureTable(ctx, d.Schema); err != nil {
		return 0, storeError("falha ao criar "+d.Schema.Name, err)
	}
	if err := d.Store.WriteRows(ctx, d.Schema.Name, records, d.Schema.WriteOptions(entity.WriteClear)); err != nil {
		return 0, storeError("falha ao gravar "+d.Schema.Name, err)
	}
	return len(records), nil
}
