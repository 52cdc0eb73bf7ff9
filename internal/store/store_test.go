package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/commentradar/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return New(filepath.Join(t.TempDir(), "comments.json"), logger)
}

func rec(url, text string) model.Record {
	return model.Record{SourceURL: url, Platform: "blog", AuthorName: "a", Text: text}
}

func keys(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.SourceURL+"/"+r.Text)
	}
	return out
}

func TestStore_EndToEnd(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Merge([]model.Record{rec("u1", "Great tool!"), rec("u2", "Bad experience")})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Added: 2, Total: 2}, res)

	stored, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/Great tool!", "u2/Bad experience"}, keys(stored))

	res, err = s.Merge([]model.Record{rec("u1", "Great tool!"), rec("u3", "Fine.")})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Added: 1, Total: 3}, res)

	stored, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/Great tool!", "u2/Bad experience", "u3/Fine."}, keys(stored))
}

func TestStore_LoadMissingAndEmpty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, os.WriteFile(s.Path(), []byte("  \n"), 0644))
	records, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0644))

	_, err := s.Load()
	assert.Error(t, err)

	_, err = s.Merge([]model.Record{rec("u1", "x")})
	assert.Error(t, err, "merge must not overwrite an unreadable store")

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestStore_MergeIdempotent(t *testing.T) {
	s := newTestStore(t)
	batch := []model.Record{rec("u1", "one"), rec("u2", "two")}

	_, err := s.Merge(batch)
	require.NoError(t, err)
	first, err := s.Load()
	require.NoError(t, err)

	res, err := s.Merge(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)

	second, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_WritesUnescapedIndentedJSON(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Merge([]model.Record{rec("https://example.com/?a=1&b=2", "Ça marche <très> bien")})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "Ça marche <très> bien")
	assert.Contains(t, content, "a=1&b=2")
	assert.True(t, strings.HasPrefix(content, "[\n  {"), "expected 2-space indented array, got %q", content[:10])
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Merge([]model.Record{rec("u1", "old")})
	require.NoError(t, err)

	res, err := s.Replace([]model.Record{rec("u9", "new")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	stored, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"u9/new"}, keys(stored))
}

func TestStore_LegacyFieldsRewritten(t *testing.T) {
	s := newTestStore(t)
	legacy := `[{"source_url":"u1","platform":"reddit","commenter_name":"bob","comment_text":"Great tool!","date_posted":"2024-03-01","sentiment":"positive","likes":4,"replies":null}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0644))

	res, err := s.Merge([]model.Record{rec("u1", "Great tool!"), rec("u2", "fresh")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"author_name": "bob"`)
	assert.NotContains(t, string(data), "commenter_name")
}

func TestStore_CreatesParentDir(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(filepath.Join(t.TempDir(), "nested", "dir", "out.json"), logger)

	_, err := s.Merge([]model.Record{rec("u1", "x")})
	require.NoError(t, err)
	assert.FileExists(t, s.Path())
}

func TestStore_LogsMerge(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := New(filepath.Join(t.TempDir(), "c.json"), logger)

	_, err := s.Merge([]model.Record{rec("u1", "x")})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "store", entry.Data["component"])
	assert.Equal(t, 1, entry.Data["added"])
}

func TestReconcile(t *testing.T) {
	existing := []model.Record{rec("u2", "b"), rec("u1", "a")}

	t.Run("existing kept in order", func(t *testing.T) {
		merged, added := Reconcile(existing, []model.Record{rec("u3", "c"), rec("u1", "a")})
		assert.Equal(t, []string{"u2/b", "u1/a", "u3/c"}, keys(merged))
		assert.Equal(t, []string{"u3/c"}, keys(added))
	})

	t.Run("incoming batch deduplicated first wins", func(t *testing.T) {
		first := rec("u4", "d")
		first.AuthorName = "first"
		second := rec("u4", "d")
		second.AuthorName = "second"

		merged, added := Reconcile(nil, []model.Record{first, second})
		require.Len(t, merged, 1)
		assert.Equal(t, "first", merged[0].AuthorName)
		assert.Len(t, added, 1)
	})

	t.Run("same url different text is distinct", func(t *testing.T) {
		merged, _ := Reconcile(existing, []model.Record{rec("u1", "another comment")})
		assert.Len(t, merged, 3)
	})

	t.Run("existing records never dropped", func(t *testing.T) {
		merged, _ := Reconcile(existing, nil)
		assert.Equal(t, keys(existing), keys(merged))
	})

	t.Run("does not alias input", func(t *testing.T) {
		merged, _ := Reconcile(existing, nil)
		merged[0].Text = "changed"
		assert.Equal(t, "b", existing[0].Text)
	})
}
