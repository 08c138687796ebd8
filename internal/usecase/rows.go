package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

// RowMatcher diz se uma linha da tabela corresponde a um registro.
type RowMatcher func(rec entity.Record) bool

// locateRows devolve, para cada lead, a posição da linha dele em current (0
// quando não está lá). Cada linha atende um lead só. No modo estrito, usado
// para apagar, lead com ID só casa com a linha do mesmo ID e lead sem ID só
// casa com linha sem ID de mesmo nome; fora dele valem as regras do
// FindLead, que deixam um lead com ID adotar a linha legada homônima.
func locateRows(current []entity.Record, leads []*entity.Lead, strict bool) []int {
	candidates := make([]*entity.Lead, 0, len(current))
	for _, rec := range current {
		candidates = append(candidates, entity.LeadFromRecord(rec))
	}

	claimed := map[int]bool{}
	positions := make([]int, len(leads))
	for i, lead := range leads {
		available := make([]*entity.Lead, 0, len(candidates))
		for _, c := range candidates {
			if !claimed[c.Row] {
				available = append(available, c)
			}
		}

		var found *entity.Lead
		if strict {
			found = findExact(lead, available)
		} else {
			found = FindLead(lead, available)
		}
		if found != nil {
			claimed[found.Row] = true
			positions[i] = found.Row
		}
	}
	return positions
}

func findExact(lead *entity.Lead, snapshot []*entity.Lead) *entity.Lead {
	id := strings.TrimSpace(lead.GHLContactID)
	name := lead.NameKey()
	for _, l := range snapshot {
		if id != "" {
			if strings.TrimSpace(l.GHLContactID) == id {
				return l
			}
			continue
		}
		if !l.HasContactID() && name != "" && l.NameKey() == name {
			return l
		}
	}
	return nil
}

// RowWriter faz update/delete por chave: segura o lock da tabela, relê as
// linhas e só então resolve as posições. Assim dois escritores nunca usam
// posições velhas.
type RowWriter struct {
	Store    entity.RowStore
	Locker   Locker
	LockWait time.Duration
}

func NewRowWriter(store entity.RowStore, locker Locker, wait time.Duration) *RowWriter {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &RowWriter{Store: store, Locker: locker, LockWait: wait}
}

func (w *RowWriter) lock(ctx context.Context, table string) (func(), error) {
	key := LockKeyRows + table
	release, err := w.Locker.TryLock(ctx, key, w.LockWait)
	if err != nil {
		log.Printf("❌ [lockError] %s: %v", key, err)
		return nil, lockError(key, err)
	}
	return release, nil
}

// UpdateRows grava cada lead por cima da linha atual do mesmo contato. A
// linha é relida sob o lock e os campos preenchidos do lead são mesclados
// nela, então um escritor com cópia velha não apaga o que outro gravou.
// Leads que não estão mais na tabela são pulados com log. Devolve quantos
// foram gravados.
func (w *RowWriter) UpdateRows(ctx context.Context, schema entity.TableSchema, leads []*entity.Lead) (int, error) {
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return 0, err
	}
	defer release()

	current, err := w.Store.ReadRows(ctx, schema.Name, schema.ReadOptions())
	if err != nil {
		return 0, storeError("falha ao reler "+schema.Name, err)
	}
	byRow := make(map[int]entity.Record, len(current))
	for _, rec := range current {
		byRow[rec.Row] = rec
	}

	var records []entity.Record
	for i, row := range locateRows(current, leads, false) {
		lead := leads[i]
		if row == 0 {
			log.Printf("⚠️ [%s] %s não encontrado para update, pulando", schema.Name, lead.FullName())
			continue
		}
		merged := MergeLead(entity.LeadFromRecord(byRow[row]), lead)
		*lead = *merged
		records = append(records, merged.ToRecord())
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := w.Store.WriteRows(ctx, schema.Name, records, schema.WriteOptions(entity.WriteOverwrite)); err != nil {
		return 0, storeError("falha ao gravar "+schema.Name, err)
	}
	return len(records), nil
}

// AppendRows acrescenta registros no fim da tabela, sob o mesmo lock dos
// updates.
func (w *RowWriter) AppendRows(ctx context.Context, schema entity.TableSchema, records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return err
	}
	defer release()

	if err := w.Store.WriteRows(ctx, schema.Name, records, schema.WriteOptions(entity.WriteAppend)); err != nil {
		return storeError("falha ao acrescentar em "+schema.Name, err)
	}
	return nil
}

// RemoveRows apaga as linhas que casam com match e devolve os registros
// removidos.
func (w *RowWriter) RemoveRows(ctx context.Context, schema entity.TableSchema, match RowMatcher) ([]entity.Record, error) {
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := w.Store.ReadRows(ctx, schema.Name, schema.ReadOptions())
	if err != nil {
		return nil, storeError("falha ao reler "+schema.Name, err)
	}
	return w.deleteLocked(ctx, schema, current, match)
}

// deleteLocked apaga de current as linhas que casam. O chamador segura o
// lock da tabela.
func (w *RowWriter) deleteLocked(ctx context.Context, schema entity.TableSchema, current []entity.Record, match RowMatcher) ([]entity.Record, error) {
	var removed []entity.Record
	var rows []int
	for _, rec := range current {
		if match(rec) {
			removed = append(removed, rec)
			rows = append(rows, rec.Row)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sort.Ints(rows)

	if err := w.Store.DeleteRows(ctx, schema.Name, rows); err != nil {
		return nil, storeError("falha ao apagar linhas de "+schema.Name, err)
	}
	log.Printf("🗑️ [%s] %d linhas removidas", schema.Name, len(rows))
	return removed, nil
}

// RemoveLeads apaga exatamente as linhas dos leads dados (ver locateRows,
// modo estrito) e devolve os registros removidos.
func (w *RowWriter) RemoveLeads(ctx context.Context, schema entity.TableSchema, leads []*entity.Lead) ([]entity.Record, error) {
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := w.Store.ReadRows(ctx, schema.Name, schema.ReadOptions())
	if err != nil {
		return nil, storeError("falha ao reler "+schema.Name, err)
	}
	targets := map[int]bool{}
	for _, row := range locateRows(current, leads, true) {
		if row != 0 {
			targets[row] = true
		}
	}
	return w.deleteLocked(ctx, schema, current, func(rec entity.Record) bool { return targets[rec.Row] })
}

// InsertLead grava um lead novo, a menos que outro escritor já tenha criado
// o mesmo contato desde a leitura do snapshot. Nesse caso o lead é mesclado
// na linha existente e created volta false.
func (w *RowWriter) InsertLead(ctx context.Context, schema entity.TableSchema, lead *entity.Lead) (stored *entity.Lead, created bool, err error) {
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return nil, false, err
	}
	defer release()

	current, err := w.Store.ReadRows(ctx, schema.Name, schema.ReadOptions())
	if err != nil {
		return nil, false, storeError("falha ao reler "+schema.Name, err)
	}
	snapshot := make([]*entity.Lead, 0, len(current))
	for _, rec := range current {
		snapshot = append(snapshot, entity.LeadFromRecord(rec))
	}

	if existing := FindLead(lead, snapshot); existing != nil {
		merged := MergeLead(existing, lead)
		rec := merged.ToRecord()
		if err := w.Store.WriteRows(ctx, schema.Name, []entity.Record{rec}, schema.WriteOptions(entity.WriteOverwrite)); err != nil {
			return nil, false, storeError("falha ao gravar "+schema.Name, err)
		}
		return merged, false, nil
	}

	rec := lead.ToRecord()
	rec.Row = 0
	if err := w.Store.WriteRows(ctx, schema.Name, []entity.Record{rec}, schema.WriteOptions(entity.WriteAppend)); err != nil {
		return nil, false, storeError("falha ao acrescentar em "+schema.Name, err)
	}
	return lead, true, nil
}

// ReplaceAll reescreve a tabela inteira com os leads dados, na ordem dada.
// Sob o lock, cada lead é mesclado sobre a linha atual dele, para não perder
// o que outro escritor gravou depois da leitura do chamador. Linhas atuais
// que nenhum lead ocupa só sobrevivem (no fim da tabela) se preserve
// aceitar; preserve nil descarta todas.
func (w *RowWriter) ReplaceAll(ctx context.Context, schema entity.TableSchema, leads []*entity.Lead, preserve func(*entity.Lead) bool) error {
	release, err := w.lock(ctx, schema.Name)
	if err != nil {
		return err
	}
	defer release()

	current, err := w.Store.ReadRows(ctx, schema.Name, schema.ReadOptions())
	if err != nil {
		return storeError("falha ao reler "+schema.Name, err)
	}
	byRow := make(map[int]entity.Record, len(current))
	for _, rec := range current {
		byRow[rec.Row] = rec
	}

	claimed := map[int]bool{}
	records := make([]entity.Record, 0, len(leads))
	for i, row := range locateRows(current, leads, false) {
		lead := leads[i]
		if row != 0 {
			claimed[row] = true
			lead = MergeLead(entity.LeadFromRecord(byRow[row]), lead)
		}
		rec := lead.ToRecord()
		rec.Row = 0
		records = append(records, rec)
	}
	if preserve != nil {
		for _, rec := range current {
			if claimed[rec.Row] || !preserve(entity.LeadFromRecord(rec)) {
				continue
			}
			log.Printf("ℹ️ [%s] %s %s gravado durante a reescrita, mantido", schema.Name, rec.Get(entity.KeyFirstName), rec.Get(entity.KeyLastName))
			kept := rec.Clone()
			kept.Row = 0
			records = append(records, kept)
		}
	}

	if err := w.Store.WriteRows(ctx, schema.Name, records, schema.WriteOptions(entity.WriteClear)); err != nil {
		return storeError("falha ao reescrever "+schema.Name, err)
	}
	return nil
}
