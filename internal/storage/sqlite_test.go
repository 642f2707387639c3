package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pydocod/internal/docstring"
	"pydocod/internal/extractor"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func testModule(path, hash string, names ...string) *extractor.Module {
	m := &extractor.Module{Path: path, Language: "python", ContentHash: hash}
	for i, name := range names {
		m.Functions = append(m.Functions, extractor.Function{
			ID:        "python/" + name,
			Name:      name,
			StartLine: i*10 + 1,
			EndLine:   i*10 + 5,
			Signature: "def " + name + "(x: int) -> int",
			Docstring: docstring.Docstring{
				Title: name + " does things.",
				Body:  []docstring.BodyPart{docstring.Text("Prose."), docstring.CodeSnippet(name + "(1)")},
			},
			Arguments:  []docstring.Argument{{Name: "x", Type: strPtr("int"), Description: strPtr("A number.")}},
			ReturnType: strPtr("int"),
		})
	}
	return m
}

func TestSQLiteStore_SaveLoadModule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveModule(ctx, testModule("pkg/a.py", "h1", "first", "second")))

	loaded, err := store.LoadModule(ctx, "pkg/a.py")
	require.NoError(t, err)
	assert.Equal(t, "python", loaded.Language)
	assert.Equal(t, "h1", loaded.ContentHash)
	require.Len(t, loaded.Functions, 2)

	fn := loaded.Functions[1]
	assert.Equal(t, "second", fn.Name)
	assert.Equal(t, 11, fn.StartLine)
	assert.Equal(t, "second does things.", fn.Docstring.Title)
	assert.Equal(t, docstring.CodeSnippet("second(1)"), fn.Docstring.Body[1])
	require.Len(t, fn.Arguments, 1)
	assert.Equal(t, "int", *fn.Arguments[0].Type)
	assert.Nil(t, fn.Arguments[0].Default)
	assert.Equal(t, "int", *fn.ReturnType)
}

func TestSQLiteStore_SaveModule_ReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveModule(ctx, testModule("a.py", "h1", "old", "kept")))
	require.NoError(t, store.SaveModule(ctx, testModule("a.py", "h2", "kept")))

	loaded, err := store.LoadModule(ctx, "a.py")
	require.NoError(t, err)
	require.Len(t, loaded.Functions, 1)
	assert.Equal(t, "kept", loaded.Functions[0].Name)

	hash, err := store.ModuleHash(ctx, "a.py")
	require.NoError(t, err)
	assert.Equal(t, "h2", hash)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveModule(ctx, testModule("b.py", "hb", "x")))
	require.NoError(t, store.SaveModule(ctx, testModule("a.py", "ha")))

	list, err := store.ListModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ModuleSummary{
		{Path: "a.py", ContentHash: "ha", FunctionCount: 0},
		{Path: "b.py", ContentHash: "hb", FunctionCount: 1},
	}, list)

	require.NoError(t, store.DeleteModule(ctx, "b.py"))
	require.NoError(t, store.DeleteModule(ctx, "missing.py"))

	_, err = store.LoadModule(ctx, "b.py")
	assert.ErrorIs(t, err, ErrModuleNotFound)
	_, err = store.ModuleHash(ctx, "b.py")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	empty, err := store.LoadModule(ctx, "a.py")
	require.NoError(t, err)
	assert.NotNil(t, empty.Functions)
	assert.Empty(t, empty.Functions)
}

func expectSchema(mock sqlmock.Sqlmock) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS modules").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS functions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_functions_name").WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestSQLiteStore_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS modules").WillReturnError(errors.New("disk full"))

	_, err = NewSQLiteStoreWithDB(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to init schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_SaveModule_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectSchema(mock)
	store, err := NewSQLiteStoreWithDB(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO modules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM functions").WithArgs("a.py").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err = store.SaveModule(context.Background(), testModule("a.py", "h", "f"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_LoadModule_DecodeError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectSchema(mock)
	store, err := NewSQLiteStoreWithDB(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM modules WHERE path").WithArgs("a.py").
		WillReturnRows(sqlmock.NewRows([]string{"path", "language", "content_hash"}).AddRow("a.py", "python", "h"))
	mock.ExpectQuery("SELECT record FROM functions").WithArgs("a.py").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow([]byte("{not json")))

	_, err = store.LoadModule(context.Background(), "a.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode function")
	assert.NoError(t, mock.ExpectationsWereMet())
}
