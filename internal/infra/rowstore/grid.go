package rowstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// grid é uma tabela em células, com linhas e colunas 1-based como numa
// planilha. É a base do MemoryStore e do XLSXStore.
type grid struct {
	cells [][]string
}

func headerRowOf(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (g *grid) get(row, col int) string {
	if row < 1 || row > len(g.cells) {
		return ""
	}
	r := g.cells[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

func (g *grid) set(row, col int, value string) {
	for len(g.cells) < row {
		g.cells = append(g.cells, nil)
	}
	r := g.cells[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	g.cells[row-1] = r
}

// lastRow é a última linha com alguma célula preenchida.
func (g *grid) lastRow() int {
	for i := len(g.cells); i > 0; i-- {
		for _, v := range g.cells[i-1] {
			if strings.TrimSpace(v) != "" {
				return i
			}
		}
	}
	return 0
}

func (g *grid) width() int {
	w := 0
	for _, r := range g.cells {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// keys devolve a chave normalizada de cada coluna do header (índice 0 =
// coluna 1). Colunas sem header ficam com chave vazia.
func (g *grid) keys(headerRow int) []string {
	if headerRow < 1 || headerRow > len(g.cells) {
		return nil
	}
	raw := g.cells[headerRow-1]
	keys := make([]string, len(raw))
	for i, h := range raw {
		keys[i] = entity.NormalizeHeader(h)
	}
	return keys
}

// ensureHeaders grava os headers do schema se a linha estiver vazia, ou
// acrescenta no fim os que faltam. Devolve true se mudou algo.
func (g *grid) ensureHeaders(schema entity.TableSchema) bool {
	hr := headerRowOf(schema.HeaderRow)
	keys := g.keys(hr)
	present := map[string]bool{}
	last := 0
	for i, k := range keys {
		if k != "" {
			present[k] = true
			last = i + 1
		}
	}

	changed := false
	for _, h := range schema.Headers {
		key := entity.NormalizeHeader(h)
		if present[key] {
			continue
		}
		last++
		g.set(hr, last, h)
		present[key] = true
		changed = true
	}
	return changed
}

func (g *grid) read(opts entity.ReadOptions) ([]entity.Record, error) {
	hr := headerRowOf(opts.HeaderRow)
	keys := g.keys(hr)
	if len(keys) == 0 {
		return nil, fmt.Errorf("linha de header %d vazia", hr)
	}
	filter := entity.FilterKeys(opts.Headers)

	first := opts.FirstRow
	if first <= hr {
		first = hr + 1
	}
	last := g.lastRow()
	if opts.LastRow > 0 && opts.LastRow < last {
		last = opts.LastRow
	}

	var records []entity.Record
	for row := first; row <= last; row++ {
		rec := entity.Record{Row: row, Fields: map[string]string{}}
		empty := true
		for i, key := range keys {
			if key == "" || (filter != nil && !filter[key]) {
				continue
			}
			if _, dup := rec.Fields[key]; dup {
				continue
			}
			v := g.get(row, i+1)
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			rec.Fields[key] = v
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (g *grid) write(records []entity.Record, opts entity.WriteOptions) error {
	hr := headerRowOf(opts.HeaderRow)
	keys := g.keys(hr)
	if len(keys) == 0 {
		return fmt.Errorf("linha de header %d vazia", hr)
	}
	columns := map[string]int{}
	for i, key := range keys {
		if _, dup := columns[key]; key != "" && !dup {
			columns[key] = i + 1
		}
	}
	filter := entity.FilterKeys(opts.Headers)

	var start int
	switch opts.Mode {
	case entity.WriteAppend:
		start = max(g.lastRow()+1, hr+1, opts.StartRow)
	case entity.WriteClear:
		start = max(hr+1, opts.StartRow)
		if len(g.cells) >= start {
			g.cells = g.cells[:start-1]
		}
	default:
		start = opts.StartRow
		if start > 0 && start <= hr {
			return fmt.Errorf("linha inicial %d sobrepõe o header", start)
		}
	}

	for i, rec := range records {
		row := start + i
		if opts.Mode == entity.WriteOverwrite && start == 0 {
			row = rec.Row
		}
		if row <= hr {
			return fmt.Errorf("registro %d sem posição válida (linha %d)", i, row)
		}
		for key, col := range columns {
			if filter != nil && !filter[key] {
				continue
			}
			if v, ok := rec.Fields[key]; ok {
				g.set(row, col, v)
			}
		}
	}
	return nil
}

// deleteRows remove as linhas e sobe as de baixo, como numa planilha.
func (g *grid) deleteRows(rows []int) {
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	prev := -1
	for _, row := range sorted {
		if row == prev || row < 1 || row > len(g.cells) {
			continue
		}
		g.cells = append(g.cells[:row-1], g.cells[row:]...)
		prev = row
	}
}

func (g *grid) clone() *grid {
	out := &grid{cells: make([][]string, len(g.cells))}
	for i, r := range g.cells {
		out.cells[i] = append([]string(nil), r...)
	}
	return out
}
