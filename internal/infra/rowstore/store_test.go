package rowstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
	"github.com/xavierca1/gymcrm-sync/internal/infra/database"
)

var testSchema = entity.TableSchema{
	Name:      "CRM Tracking Sheet",
	HeaderRow: 1,
	Headers:   []string{"Status", "First Name", "Last Name", "GHL Contact ID", "Notes"},
}

var ledgerSchema = entity.TableSchema{
	Name:         "Accountability Tracking",
	HeaderRow:    5,
	DataStartRow: 9,
	Headers:      []string{"First Name", "Last Name", "Challenge Start Date"},
}

func rec(fields map[string]string) entity.Record {
	return entity.Record{Fields: fields}
}

func backends(t *testing.T) map[string]entity.RowStore {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Open(context.Background(), "sqlite3", filepath.Join(dir, "gymcrm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]entity.RowStore{
		"memory": NewMemoryStore(),
		"xlsx":   NewXLSXStore(filepath.Join(dir, "gymcrm.xlsx")),
		"sqlite": NewSQLStore(db, "sqlite3"),
	}
}

func TestRowStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.EnsureTable(ctx, testSchema))

			// append
			err := store.WriteRows(ctx, testSchema.Name, []entity.Record{
				rec(map[string]string{"firstName": "Jim", "lastName": "Jonas"}),
				rec(map[string]string{"firstName": "Jane", "lastName": "Doe", "ghlContactId": "c1", "status": "New Lead"}),
				rec(map[string]string{"firstName": "John", "lastName": "Roe", "ghlContactId": "c2"}),
			}, testSchema.WriteOptions(entity.WriteAppend))
			require.NoError(t, err)

			rows, err := store.ReadRows(ctx, testSchema.Name, testSchema.ReadOptions())
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, 2, rows[0].Row)
			assert.Equal(t, "Jane", rows[1].Get("firstName"))
			assert.Equal(t, 3, rows[1].Row)

			// overwrite na posição do próprio registro, sem apagar colunas ausentes
			err = store.WriteRows(ctx, testSchema.Name, []entity.Record{
				{Row: 3, Fields: map[string]string{"status": "Member Sign-Up"}},
			}, testSchema.WriteOptions(entity.WriteOverwrite))
			require.NoError(t, err)

			// filtro de colunas
			rows, err = store.ReadRows(ctx, testSchema.Name, entity.ReadOptions{HeaderRow: 1, Headers: []string{"Status", "First Name"}})
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, "Member Sign-Up", rows[1].Get("status"))
			assert.Equal(t, "Jane", rows[1].Get("firstName"))
			_, hasID := rows[1].Fields["ghlContactId"]
			assert.False(t, hasID)

			// delete sobe as linhas de baixo
			require.NoError(t, store.DeleteRows(ctx, testSchema.Name, []int{2}))
			rows, err = store.ReadRows(ctx, testSchema.Name, testSchema.ReadOptions())
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, 2, rows[0].Row)
			assert.Equal(t, "c1", rows[0].Get("ghlContactId"))
			assert.Equal(t, 3, rows[1].Row)
			assert.Equal(t, "c2", rows[1].Get("ghlContactId"))

			// clear reescreve tudo
			err = store.WriteRows(ctx, testSchema.Name, []entity.Record{
				rec(map[string]string{"firstName": "Solo", "ghlContactId": "c9"}),
			}, testSchema.WriteOptions(entity.WriteClear))
			require.NoError(t, err)
			rows, err = store.ReadRows(ctx, testSchema.Name, testSchema.ReadOptions())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "Solo", rows[0].Get("firstName"))
			assert.Equal(t, "", rows[0].Get("status"))
		})
	}
}

func TestRowStoreHeaderRowAndDataStart(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.EnsureTable(ctx, ledgerSchema))

			err := store.WriteRows(ctx, ledgerSchema.Name, []entity.Record{
				rec(map[string]string{"firstName": "Jane", "lastName": "Doe", "challengeStartDate": "01/02/2025"}),
			}, ledgerSchema.WriteOptions(entity.WriteAppend))
			require.NoError(t, err)

			rows, err := store.ReadRows(ctx, ledgerSchema.Name, ledgerSchema.ReadOptions())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, 9, rows[0].Row)
			assert.Equal(t, "01/02/2025", rows[0].Get("challengeStartDate"))
		})
	}
}

func TestEnsureTableAddsMissingHeaders(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			small := entity.TableSchema{Name: "Pricing", HeaderRow: 1, Headers: []string{"Status", "First Name"}}
			require.NoError(t, store.EnsureTable(ctx, small))

			bigger := small
			bigger.Headers = []string{"Status", "First Name", "Visible"}
			require.NoError(t, store.EnsureTable(ctx, bigger))

			err := store.WriteRows(ctx, "Pricing", []entity.Record{
				rec(map[string]string{"status": "Member Sign-Up", "visible": "TRUE"}),
			}, bigger.WriteOptions(entity.WriteAppend))
			require.NoError(t, err)

			rows, err := store.ReadRows(ctx, "Pricing", bigger.ReadOptions())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "TRUE", rows[0].Get("visible"))
		})
	}
}

func TestSQLStoreRetriesSchemaAfterFailedInit(t *testing.T) {
	db, err := database.Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "gymcrm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := NewSQLStore(db, "sqlite3")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.EnsureTable(cancelled, testSchema))

	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, testSchema))
	require.NoError(t, store.WriteRows(ctx, testSchema.Name, []entity.Record{
		rec(map[string]string{"firstName": "Jane", "ghlContactId": "c1"}),
	}, testSchema.WriteOptions(entity.WriteAppend)))
	rows, err := store.ReadRows(ctx, testSchema.Name, testSchema.ReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].Get("ghlContactId"))
}

func TestRowStoreMissingTable(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.ReadRows(context.Background(), "Nope", entity.ReadOptions{})
			assert.ErrorIs(t, err, entity.ErrTableNotFound)
		})
	}
}

func TestOverwriteRejectsHeaderRow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, testSchema))

	err := store.WriteRows(ctx, testSchema.Name, []entity.Record{rec(map[string]string{"firstName": "X"})}, testSchema.WriteOptions(entity.WriteOverwrite))
	assert.Error(t, err)

	rows, err := store.ReadRows(ctx, testSchema.Name, testSchema.ReadOptions())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNewSelectsBackend(t *testing.T) {
	store, db, err := New(context.Background(), Config{Driver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, &MemoryStore{}, store)

	_, _, err = New(context.Background(), Config{Driver: "xlsx"})
	assert.Error(t, err)

	_, _, err = New(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestRebindPostgres(t *testing.T) {
	s := &SQLStore{dialect: "postgres"}
	assert.Equal(t, "a = $1 AND b = $2", s.rebind("a = ? AND b = ?"))
	s.dialect = "sqlite"
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}
