package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

const (
	tablesTable = "gymcrm_tables"
	rowsTable   = "gymcrm_rows"
)

// SQLStore guarda as tabelas num banco relacional (Postgres ou SQLite),
// preservando a semântica de planilha: cada linha tem uma posição e apagar
// uma linha sobe as de baixo.
type SQLStore struct {
	db         *sql.DB
	dialect    string
	opTimeout  time.Duration
	initMutex  sync.Mutex
	ready      bool
	writeMutex sync.Mutex
}

// NewSQLStore recebe o driver usado em sql.Open ("postgres", "pgx" ou
// "sqlite3") para acertar os placeholders.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	dialect := "postgres"
	if driver == "sqlite3" || driver == "sqlite" {
		dialect = "sqlite"
	}
	return &SQLStore{db: db, dialect: dialect, opTimeout: 15 * time.Second}
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// rebind troca "?" por "$n" no Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// ensureReady cria o schema na primeira chamada bem-sucedida. Uma falha não
// fica guardada: a próxima chamada tenta de novo com o próprio contexto.
func (s *SQLStore) ensureReady(ctx context.Context) error {
	s.initMutex.Lock()
	defer s.initMutex.Unlock()
	if s.ready {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tablesTable + ` (
			name TEXT PRIMARY KEY,
			header_row INTEGER NOT NULL,
			headers TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + rowsTable + ` (
			table_name TEXT NOT NULL,
			row_num INTEGER NOT NULL,
			fields TEXT NOT NULL,
			PRIMARY KEY (table_name, row_num)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("erro ao criar schema do row store: %w", err)
		}
	}
	s.ready = true
	return nil
}

type tableMeta struct {
	headerRow int
	headers   []string
}

func (m tableMeta) keys() []string {
	keys := make([]string, 0, len(m.headers))
	for _, h := range m.headers {
		keys = append(keys, entity.NormalizeHeader(h))
	}
	return keys
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) meta(ctx context.Context, q querier, table string) (*tableMeta, error) {
	var headerRow int
	var headersJSON string
	err := q.QueryRowContext(ctx, s.rebind(`SELECT header_row, headers FROM `+tablesTable+` WHERE name = ?`), table).
		Scan(&headerRow, &headersJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao ler metadados de %s: %w", table, err)
	}
	m := &tableMeta{headerRow: headerRow}
	if err := json.Unmarshal([]byte(headersJSON), &m.headers); err != nil {
		return nil, fmt.Errorf("headers corrompidos em %s: %w", table, err)
	}
	return m, nil
}

func (s *SQLStore) EnsureTable(ctx context.Context, schema entity.TableSchema) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	current, err := s.meta(ctx, s.db, schema.Name)
	if err != nil && !errors.Is(err, entity.ErrTableNotFound) {
		return err
	}

	headers := append([]string(nil), schema.Headers...)
	headerRow := headerRowOf(schema.HeaderRow)
	if current != nil {
		// mantém a ordem existente e acrescenta o que falta
		headers = append([]string(nil), current.headers...)
		present := map[string]bool{}
		for _, k := range current.keys() {
			present[k] = true
		}
		for _, h := range schema.Headers {
			if !present[entity.NormalizeHeader(h)] {
				headers = append(headers, h)
			}
		}
		headerRow = current.headerRow
	}

	encoded, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO `+tablesTable+` (name, header_row, headers) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET headers = excluded.headers`), schema.Name, headerRow, string(encoded))
	if err != nil {
		return fmt.Errorf("erro ao registrar tabela %s: %w", schema.Name, err)
	}
	return nil
}

func (s *SQLStore) ReadRows(ctx context.Context, table string, opts entity.ReadOptions) ([]entity.Record, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.meta(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	first := opts.FirstRow
	if first <= m.headerRow {
		first = m.headerRow + 1
	}
	query := `SELECT row_num, fields FROM ` + rowsTable + ` WHERE table_name = ? AND row_num >= ?`
	args := []any{table, first}
	if opts.LastRow > 0 {
		query += ` AND row_num <= ?`
		args = append(args, opts.LastRow)
	}
	query += ` ORDER BY row_num`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler %s: %w", table, err)
	}
	defer rows.Close()

	keys := m.keys()
	filter := entity.FilterKeys(opts.Headers)
	var records []entity.Record
	for rows.Next() {
		var rowNum int
		var fieldsJSON string
		if err := rows.Scan(&rowNum, &fieldsJSON); err != nil {
			return nil, err
		}
		stored := map[string]string{}
		if err := json.Unmarshal([]byte(fieldsJSON), &stored); err != nil {
			return nil, fmt.Errorf("linha %d de %s corrompida: %w", rowNum, table, err)
		}
		rec := entity.Record{Row: rowNum, Fields: map[string]string{}}
		empty := true
		for _, key := range keys {
			if filter != nil && !filter[key] {
				continue
			}
			v := stored[key]
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			rec.Fields[key] = v
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records, rows.Err()
}

func (s *SQLStore) WriteRows(ctx context.Context, table string, records []entity.Record, opts entity.WriteOptions) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("erro ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	m, err := s.meta(ctx, tx, table)
	if err != nil {
		return err
	}
	hr := m.headerRow
	keys := m.keys()
	filter := entity.FilterKeys(opts.Headers)

	var start int
	switch opts.Mode {
	case entity.WriteAppend:
		var lastRow int
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COALESCE(MAX(row_num), 0) FROM `+rowsTable+` WHERE table_name = ?`), table).Scan(&lastRow); err != nil {
			return fmt.Errorf("erro ao achar fim de %s: %w", table, err)
		}
		start = max(lastRow+1, hr+1, opts.StartRow)
	case entity.WriteClear:
		start = max(hr+1, opts.StartRow)
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+rowsTable+` WHERE table_name = ? AND row_num >= ?`), table, start); err != nil {
			return fmt.Errorf("erro ao limpar %s: %w", table, err)
		}
	default:
		start = opts.StartRow
		if start > 0 && start <= hr {
			return fmt.Errorf("%s: linha inicial %d sobrepõe o header", table, start)
		}
	}

	for i, rec := range records {
		row := start + i
		if opts.Mode == entity.WriteOverwrite && start == 0 {
			row = rec.Row
		}
		if row <= hr {
			return fmt.Errorf("%s: registro %d sem posição válida (linha %d)", table, i, row)
		}
		if err := s.writeRow(ctx, tx, table, row, rec, keys, filter); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// writeRow mescla os campos do registro com os que já estão na linha, só
// para as colunas do header (e do filtro, se houver).
func (s *SQLStore) writeRow(ctx context.Context, tx *sql.Tx, table string, row int, rec entity.Record, keys []string, filter map[string]bool) error {
	fields := map[string]string{}
	var existing string
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT fields FROM `+rowsTable+` WHERE table_name = ? AND row_num = ?`), table, row).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("erro ao ler linha %d de %s: %w", row, table, err)
	default:
		if err := json.Unmarshal([]byte(existing), &fields); err != nil {
			return fmt.Errorf("linha %d de %s corrompida: %w", row, table, err)
		}
	}

	for _, key := range keys {
		if filter != nil && !filter[key] {
			continue
		}
		if v, ok := rec.Fields[key]; ok {
			fields[key] = v
		}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO `+rowsTable+` (table_name, row_num, fields) VALUES (?, ?, ?)
		ON CONFLICT (table_name, row_num) DO UPDATE SET fields = excluded.fields`), table, row, string(encoded))
	if err != nil {
		return fmt.Errorf("erro ao gravar linha %d de %s: %w", row, table, err)
	}
	return nil
}

func (s *SQLStore) DeleteRows(ctx context.Context, table string, rows []int) error {
	if err := s.ensureReady(ctx); err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("erro ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.meta(ctx, tx, table); err != nil {
		return err
	}

	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	prev := -1
	for _, row := range sorted {
		if row == prev {
			continue
		}
		prev = row
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+rowsTable+` WHERE table_name = ? AND row_num = ?`), table, row); err != nil {
			return fmt.Errorf("erro ao apagar linha %d de %s: %w", row, table, err)
		}
		// dois passos para não violar a PK no meio do UPDATE
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE `+rowsTable+` SET row_num = -(row_num - 1) WHERE table_name = ? AND row_num > ?`), table, row); err != nil {
			return fmt.Errorf("erro ao deslocar linhas de %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE `+rowsTable+` SET row_num = -row_num WHERE table_name = ? AND row_num < 0`), table); err != nil {
			return fmt.Errorf("erro ao deslocar linhas de %s: %w", table, err)
		}
	}
	return tx.Commit()
}
