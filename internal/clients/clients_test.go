package clients

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/agentic-research/apiout/internal/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestHTTP_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos":
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			assert.Equal(t, "5", r.URL.Query().Get("per_page"))
			assert.Equal(t, []string{"a", "b"}, r.URL.Query()["tag"])
			assert.Equal(t, "1", r.URL.Query().Get("keep"))
			_, _ = w.Write([]byte(`[{"name": "apiout", "stargazers_count": 3, "archived": false}]`))
		case "/text":
			_, _ = w.Write([]byte("plain body"))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTP(srv.Client())
	ctx := context.Background()

	t.Run("json body keeps order", func(t *testing.T) {
		got, err := c.Get(ctx, srv.URL+"/repos?keep=1", serializer.ObjectOf("per_page", int64(5), "tag", []any{"a", "b"}))
		require.NoError(t, err)
		assert.Equal(t, `[{"name":"apiout","stargazers_count":3,"archived":false}]`, marshal(t, got))
	})

	t.Run("non-json body", func(t *testing.T) {
		got, err := c.Get(ctx, srv.URL+"/text", nil)
		require.NoError(t, err)
		assert.Equal(t, "plain body", got)
	})

	t.Run("error status", func(t *testing.T) {
		_, err := c.Get(ctx, srv.URL+"/missing", nil)
		assert.ErrorContains(t, err, "404")
	})

	t.Run("bad params", func(t *testing.T) {
		_, err := c.Get(ctx, srv.URL, "per_page=5")
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Get(canceled, srv.URL+"/repos", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func createTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec("CREATE TABLE results (id TEXT PRIMARY KEY, stars INTEGER, record TEXT NOT NULL)")
	require.NoError(t, err)
	for _, row := range [][]any{
		{"a", 3, `{"item":{"name":"Alice","role":"admin"}}`},
		{"b", 5, `{"item":{"name":"Bob","role":"user"}}`},
	} {
		_, err = db.Exec("INSERT INTO results (id, stars, record) VALUES (?, ?, ?)", row...)
		require.NoError(t, err)
	}
	return dbPath
}

func TestSQLite_Query(t *testing.T) {
	dbPath := createTestDB(t)
	ctx := context.Background()

	t.Run("rows keep column order", func(t *testing.T) {
		rows, err := SQLite{}.Query(ctx, dbPath, serializer.ObjectOf("query", "SELECT stars, id FROM results ORDER BY id"))
		require.NoError(t, err)
		assert.Equal(t, `[{"stars":3,"id":"a"},{"stars":5,"id":"b"}]`, marshal(t, rows))
	})

	t.Run("args", func(t *testing.T) {
		rows, err := SQLite{}.Query(ctx, dbPath, map[string]any{
			"query": "SELECT id FROM results WHERE stars > ?",
			"args":  []any{int64(4)},
		})
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b"}]`, marshal(t, rows))
	})

	t.Run("json columns project through the walker", func(t *testing.T) {
		rows, err := SQLite{}.Query(ctx, dbPath, serializer.ObjectOf("query", "SELECT record FROM results ORDER BY id"))
		require.NoError(t, err)

		s, err := serializer.Compile(map[string]any{
			"fields": serializer.ObjectOf("name", "record.item.name", "role", map[string]any{"path": "record.item.role"}),
		})
		require.NoError(t, err)
		got, err := serializer.Serialize(rows, s)
		require.NoError(t, err)
		assert.Equal(t, `[{"name":"Alice","role":"admin"},{"name":"Bob","role":"user"}]`, marshal(t, got))
	})

	t.Run("empty result", func(t *testing.T) {
		rows, err := SQLite{}.Query(ctx, dbPath, serializer.ObjectOf("query", "SELECT id FROM results WHERE 0"))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("invalid params", func(t *testing.T) {
		for _, params := range []any{
			nil,
			serializer.ObjectOf("query", 1),
			serializer.ObjectOf("query", "SELECT 1", "args", "x"),
		} {
			_, err := SQLite{}.Query(ctx, dbPath, params)
			assert.Error(t, err)
		}
	})

	t.Run("bad sql", func(t *testing.T) {
		_, err := SQLite{}.Query(ctx, dbPath, serializer.ObjectOf("query", "SELECT nope FROM missing"))
		assert.ErrorContains(t, err, "query:")
	})
}

func TestStatic(t *testing.T) {
	got, err := Static{}.Echo("mem://x", serializer.ObjectOf("b", 1, "a", 2))
	require.NoError(t, err)
	assert.Equal(t, `{"url":"mem://x","b":1,"a":2}`, marshal(t, got))

	items, err := Static{}.List("", serializer.ObjectOf("items", []any{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, items)

	items, err = Static{}.List("", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, items)
}

func TestRegistry(t *testing.T) {
	r := Registry()
	assert.Equal(t, []string{"http", "sqlite", "static"}, r.Modules())

	c, err := r.New("http", "")
	require.NoError(t, err)
	assert.IsType(t, &HTTP{}, c)
}
