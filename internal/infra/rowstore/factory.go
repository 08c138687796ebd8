package rowstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xavierca1/gymcrm-sync/internal/infra/database"
)

type Config struct {
	Driver string
	DSN    string
}

// New monta o row store configurado. O *sql.DB volta junto (nil fora dos
// drivers SQL) para o chamador fechar e usar no health check.
func New(ctx context.Context, cfg Config) (entity.RowStore, *sql.DB, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil, nil
	case "xlsx":
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("STORE_DSN precisa do caminho da planilha .xlsx")
		}
		return NewXLSXStore(cfg.DSN), nil, nil
	case "postgres", "pgx", "sqlite3":
		db, err := database.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLStore(db, cfg.Driver), db, nil
	default:
		return nil, nil, fmt.Errorf("driver de armazenamento desconhecido: %q", cfg.Driver)
	}
}
