package rowstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xuri/excelize/v2"
)

// XLSXStore usa uma pasta de trabalho Excel como armazenamento: cada tabela
// é uma aba. O arquivo é aberto e salvo a cada operação, então o dono da
// academia pode abrir a planilha entre um sync e outro.
type XLSXStore struct {
	mu   sync.Mutex
	path string
}

func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

func (s *XLSXStore) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir %s: %w", s.path, err)
	}
	return f, nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func loadGrid(f *excelize.File, sheet string) (*grid, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler aba %s: %w", sheet, err)
	}
	return &grid{cells: rows}, nil
}

// saveGrid grava o grid na aba. Linhas que sobraram da versão anterior
// (depois de delete/clear) são removidas de baixo para cima.
func saveGrid(f *excelize.File, sheet string, before, after *grid) error {
	width := max(before.width(), after.width())
	for i := range after.cells {
		values := make([]interface{}, width)
		for c := 0; c < width; c++ {
			values[c] = after.get(i+1, c+1)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("erro ao gravar linha %d de %s: %w", i+1, sheet, err)
		}
	}
	for row := len(before.cells); row > len(after.cells); row-- {
		if err := f.RemoveRow(sheet, row); err != nil {
			return fmt.Errorf("erro ao remover linha %d de %s: %w", row, sheet, err)
		}
	}
	return nil
}

// update abre o arquivo, aplica fn na aba e salva.
func (s *XLSXStore) update(table string, create bool, fn func(g *grid) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if !hasSheet(f, table) {
		if !create {
			return fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
		}
		if err := addSheet(f, table); err != nil {
			return err
		}
	}

	before, err := loadGrid(f, table)
	if err != nil {
		return err
	}
	after := before.clone()
	if err := fn(after); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	if err := saveGrid(f, table, before, after); err != nil {
		return err
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("erro ao salvar %s: %w", s.path, err)
	}
	return nil
}

// addSheet reaproveita a "Sheet1" vazia de uma pasta nova.
func addSheet(f *excelize.File, name string) error {
	sheets := f.GetSheetList()
	if len(sheets) == 1 && sheets[0] == "Sheet1" {
		if rows, err := f.GetRows("Sheet1"); err == nil && len(rows) == 0 {
			return f.SetSheetName("Sheet1", name)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("erro ao criar aba %s: %w", name, err)
	}
	return nil
}

func (s *XLSXStore) EnsureTable(_ context.Context, schema entity.TableSchema) error {
	return s.update(schema.Name, true, func(g *grid) error {
		g.ensureHeaders(schema)
		return nil
	})
}

func (s *XLSXStore) ReadRows(_ context.Context, table string, opts entity.ReadOptions) ([]entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !hasSheet(f, table) {
		return nil, fmt.Errorf("%s: %w", table, entity.ErrTableNotFound)
	}
	g, err := loadGrid(f, table)
	if err != nil {
		return nil, err
	}
	return g.read(opts)
}

func (s *XLSXStore) WriteRows(_ context.Context, table string, records []entity.Record, opts entity.WriteOptions) error {
	return s.update(table, false, func(g *grid) error {
		return g.write(records, opts)
	})
}

func (s *XLSXStore) DeleteRows(_ context.Context, table string, rows []int) error {
	return s.update(table, false, func(g *grid) error {
		g.deleteRows(rows)
		return nil
	})
}
