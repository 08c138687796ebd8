package rowstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// MemoryStore guarda as tabelas em memória. Serve para desenvolvimento e
// testes; o conteúdo some quando o processo termina.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*grid
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string]*grid{}}
}

func (s *MemoryStore) EnsureTable(_ context.Context, schema entity.TableSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.tables[schema.Name]
	if !ok {
		g = &grid{}
		s.tables[schema.Name] = g
	}
	g.ensureHeaders(schema)
	return nil
}

func (s *MemoryStore) ReadRows(_ context.Context, table string, opts entity.ReadOptions) ([]entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
	}
	return g.read(opts)
}

func (s *MemoryStore) WriteRows(_ context.Context, table string, records []entity.Record, opts entity.WriteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
	}
	// grava numa cópia para não deixar a tabela pela metade em caso de erro
	next := g.clone()
	if err := next.write(records, opts); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	s.tables[table] = next
	return nil
}

func (s *MemoryStore) DeleteRows(_ context.Context, table string, rows []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
	}
	g.deleteRows(rows)
	return nil
}

// SetCell escreve uma célula direto, como um humano editando a planilha.
func (s *MemoryStore) SetCell(table string, row, col int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.tables[table]
	if !ok {
		g = &grid{}
		s.tables[table] = g
	}
	g.set(row, col, value)
}
