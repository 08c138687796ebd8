package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	_ "github.com/lib/pq"              // driver "postgres"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Open abre a conexão com o driver pedido, configura o pool e testa o Ping.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DSN vazio para o driver %s", driver)
	}

	source := dsn
	if driver == "sqlite3" && !strings.HasPrefix(dsn, "file:") {
		source = "file:" + dsn
	}

	// 1. Abre a conexão (só valida a string)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir %s: %w", driver, err)
	}

	// 2. Pool
	if driver == "sqlite3" {
		// SQLite aceita um escritor por vez
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	// 3. Ping
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("banco não respondeu: %w", err)
	}

	if driver == "sqlite3" {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(pingCtx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("erro ao configurar sqlite (%s): %w", pragma, err)
			}
		}
	}

	return db, nil
}
