package entity

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

var (
	ErrTableNotFound = errors.New("tabela não encontrada")
	ErrRowNotFound   = errors.New("linha não encontrada")
)

// Record é uma linha de uma tabela, indexada pelos headers normalizados
// (ex: "First Name" -> "firstName"). Row é a posição física (1-based) na
// tabela; zero significa que o registro ainda não foi persistido.
type Record struct {
	Row    int
	Fields map[string]string
}

func NewRecord() Record {
	return Record{Fields: map[string]string{}}
}

func (r Record) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

func (r *Record) Set(key, value string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.Fields[key] = value
}

// Clone devolve uma cópia independente do registro.
func (r Record) Clone() Record {
	out := Record{Row: r.Row, Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

type WriteMode int

const (
	// WriteOverwrite escreve a partir de StartRow, linha por linha.
	WriteOverwrite WriteMode = iota
	// WriteAppend escreve depois da última linha com dados.
	WriteAppend
	// WriteClear apaga todas as linhas de dados antes de escrever.
	WriteClear
)

func (m WriteMode) String() string {
	switch m {
	case WriteAppend:
		return "append"
	case WriteClear:
		return "clear"
	default:
		return "overwrite"
	}
}

// ReadOptions delimita a leitura. HeaderRow zerado vale 1; FirstRow/LastRow
// zerados significam "todas as linhas de dados"; Headers restringe as colunas
// devolvidas.
type ReadOptions struct {
	HeaderRow int
	FirstRow  int
	LastRow   int
	Headers   []string
}

// WriteOptions controla a escrita. Com WriteOverwrite e StartRow zerado,
// cada registro é escrito na sua própria posição (Record.Row). Com
// WriteAppend, StartRow é a primeira linha aceitável; com WriteClear, é a
// primeira linha apagada. Headers restringe as colunas escritas.
type WriteOptions struct {
	HeaderRow int
	StartRow  int
	Mode      WriteMode
	Headers   []string
}

// TableSchema descreve uma tabela: o nome, a linha do header, a primeira
// linha de dados e os headers de exibição em ordem de coluna.
type TableSchema struct {
	Name         string
	HeaderRow    int
	DataStartRow int
	Headers      []string
}

func (s TableSchema) FirstDataRow() int {
	if s.DataStartRow > s.HeaderRow {
		return s.DataStartRow
	}
	return s.HeaderRow + 1
}

func (s TableSchema) ReadOptions() ReadOptions {
	return ReadOptions{HeaderRow: s.HeaderRow, FirstRow: s.FirstDataRow()}
}

func (s TableSchema) WriteOptions(mode WriteMode) WriteOptions {
	opts := WriteOptions{HeaderRow: s.HeaderRow, Mode: mode}
	if mode != WriteOverwrite {
		opts.StartRow = s.FirstDataRow()
	}
	return opts
}

// Keys devolve os headers já normalizados, na ordem das colunas.
func (s TableSchema) Keys() []string {
	keys := make([]string, 0, len(s.Headers))
	for _, h := range s.Headers {
		keys = append(keys, NormalizeHeader(h))
	}
	return keys
}

// RowStore é o contrato com o armazenamento tabular (planilha, banco ou
// memória). As posições de linha são as da tabela física.
type RowStore interface {
	EnsureTable(ctx context.Context, schema TableSchema) error
	ReadRows(ctx context.Context, table string, opts ReadOptions) ([]Record, error)
	WriteRows(ctx context.Context, table string, records []Record, opts WriteOptions) error
	DeleteRows(ctx context.Context, table string, rows []int) error
}

// NormalizeHeader converte um header de planilha numa chave camelCase:
// ignora caracteres não alfanuméricos e dígitos iniciais, e coloca em
// maiúscula a primeira letra depois de cada espaço.
func NormalizeHeader(header string) string {
	var b strings.Builder
	upperNext := false
	for _, ch := range strings.TrimSpace(header) {
		if ch == ' ' {
			if b.Len() > 0 {
				upperNext = true
			}
			continue
		}
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) {
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(ch) {
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(ch))
			upperNext = false
			continue
		}
		b.WriteRune(unicode.ToLower(ch))
	}
	return b.String()
}

// FilterKeys devolve as chaves normalizadas de uma lista de headers, ou nil
// quando a lista está vazia (sem filtro).
func FilterKeys(headers []string) map[string]bool {
	if len(headers) == 0 {
		return nil
	}
	keys := make(map[string]bool, len(headers))
	for _, h := range headers {
		keys[NormalizeHeader(h)] = true
	}
	return keys
}

// RecordKey é a chave de junção entre tabelas: o contact ID quando existe,
// senão o nome completo normalizado.
func RecordKey(rec Record) string {
	if id := strings.TrimSpace(rec.Get(KeyGHLContactID)); id != "" {
		return "id:" + id
	}
	return "name:" + NormalizeName(rec.Get(KeyFirstName)+" "+rec.Get(KeyLastName))
}
