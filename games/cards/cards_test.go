/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Text
	}
	return out
}

func decodeString(t *testing.T, s string) any {
	t.Helper()
	v, err := Decode(strings.NewReader(s))
	require.NoError(t, err)
	return v
}

func TestDecode(t *testing.T) {
	t.Run("keeps key order", func(t *testing.T) {
		v := decodeString(t, `{"zeta": 1, "alpha": [true, null, "x"], "mid": {"b": 2, "a": 3}}`)

		obj, ok := v.(*Object)
		require.True(t, ok)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys)

		inner, ok := obj.Values["mid"].(*Object)
		require.True(t, ok)
		assert.Equal(t, []string{"b", "a"}, inner.Keys)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, in := range []string{``, `{`, `[1,]`, `{"a":1} {"b":2}`, `<html>`} {
			_, err := Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformedPayload, in)
		}
	})
}

func TestDecodeCSV(t *testing.T) {
	in := "\ufefftopic,question\nFun,\"Hello, world\"\nSolo\n,\"say \"\"hi\"\"\"\n"

	rows, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []any{"topic", "question"}, rows[0])
	assert.Equal(t, []any{"Fun", "Hello, world"}, rows[1])
	assert.Equal(t, []any{"Solo"}, rows[2])
	assert.Equal(t, []any{"", `say "hi"`}, rows[3])
}

func TestFromLines(t *testing.T) {
	pool := FromLines("  first \n\n   \r\nsecond\r\n")

	assert.Equal(t, []string{DefaultTheme}, pool.Names())
	assert.Equal(t, []string{"first", "second"}, texts(pool.Items(DefaultTheme)))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ShapeUnrecognized, Classify(nil))
	assert.Equal(t, ShapeTabular, Classify([]any{[]any{"a"}}))
	assert.Equal(t, ShapeRecords, Classify([]any{NewObject()}))
	assert.Equal(t, ShapeRecords, Classify([]any{map[string]any{}}))
	assert.Equal(t, ShapeUnrecognized, Classify([]any{"a", "b"}))
}

func TestExtract(t *testing.T) {
	t.Run("payload is the list", func(t *testing.T) {
		items := Extract(decodeString(t, `[["a"],["b"]]`))
		assert.Len(t, items, 2)
	})

	t.Run("wrapper keys in order", func(t *testing.T) {
		v := decodeString(t, `{"rows": [["r"]], "data": [["d"]], "junk": 3}`)
		items := Extract(v)
		require.Len(t, items, 1)
		assert.Equal(t, []any{"d"}, items[0])
	})

	t.Run("wrapper keys are case-insensitive", func(t *testing.T) {
		items := Extract(decodeString(t, `{"Items": [{"a": 1}]}`))
		assert.Len(t, items, 1)
	})

	t.Run("any complex array in document order", func(t *testing.T) {
		v := decodeString(t, `{"meta": "x", "second": [["s"]], "first": [["f"]]}`)
		items := Extract(v)
		require.Len(t, items, 1)
		assert.Equal(t, []any{"s"}, items[0])
	})

	t.Run("wrapper holding scalars is skipped", func(t *testing.T) {
		v := decodeString(t, `{"data": ["a", "b"], "other": [{"q": "x"}]}`)
		items := Extract(v)
		assert.Len(t, items, 1)
	})

	t.Run("nothing usable", func(t *testing.T) {
		assert.Nil(t, Extract(decodeString(t, `{"data": [], "n": 1}`)))
		assert.Nil(t, Extract(decodeString(t, `"text"`)))
		assert.Nil(t, Extract(decodeString(t, `[1, 2]`)))
	})
}

func TestSection(t *testing.T) {
	v := decodeString(t, `{"Classic": [["q"],["a"]], "tod": [{"truth": "t"}]}`)

	classic, ok := Section(v, Classic).([]any)
	require.True(t, ok)
	assert.Len(t, classic, 2)

	tod, ok := Section(v, TruthOrDare).([]any)
	require.True(t, ok)
	assert.Len(t, tod, 1)

	t.Run("other kinds only", func(t *testing.T) {
		assert.Nil(t, Section(v, Fortune))

		fortunes := decodeString(t, `{"fortunes": [{"name": "N", "content": "C"}]}`)
		assert.Nil(t, Section(fortunes, Classic))
		assert.Nil(t, Section(fortunes, TruthOrDare))
		assert.NotNil(t, Section(fortunes, Fortune))
	})

	t.Run("no sections", func(t *testing.T) {
		plain := decodeString(t, `{"data": [["q"], ["a"]]}`)
		assert.Same(t, plain, Section(plain, Fortune))
	})
}

func TestNormalizeClassic(t *testing.T) {
	t.Run("blank topic goes to default theme", func(t *testing.T) {
		items := []any{
			[]any{"topic", "question"},
			[]any{"Fun", "Q1"},
			[]any{"", "Q2"},
		}

		pool, err := Normalize(items, Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fun", DefaultTheme}, pool.Themes.Names())
		assert.Equal(t, []string{"Q1"}, texts(pool.Themes.Items("Fun")))
		assert.Equal(t, []string{"Q2"}, texts(pool.Themes.Items(DefaultTheme)))
		assert.Equal(t, []ThemeCount{{Name: "Fun", Count: 1}, {Name: DefaultTheme, Count: 1}}, pool.Themes.Counts())
	})

	t.Run("vietnamese record keys resolve regardless of order", func(t *testing.T) {
		for _, in := range []string{
			`[{"Câu hỏi": "Q1", "Chủ đề": "T1"}]`,
			`[{"Chủ đề": "T1", "Câu hỏi": "Q1"}]`,
			`[{"CHỦ ĐỀ": "T1", "câu hỏi": "Q1"}]`,
		} {
			pool, err := NormalizePayload(decodeString(t, in), Classic)
			require.NoError(t, err, in)
			assert.Equal(t, []string{"T1"}, pool.Themes.Names(), in)
			assert.Equal(t, []string{"Q1"}, texts(pool.Themes.Items("T1")), in)
		}
	})

	t.Run("accents are significant", func(t *testing.T) {
		pool, err := NormalizePayload(decodeString(t, `[{"chu de": "T1", "cau hoi": "Q1"}]`), Classic)
		require.NoError(t, err)
		// Neither key matches, so content falls back to the first key and
		// topic to the second.
		assert.Equal(t, []string{"Q1"}, pool.Themes.Names())
		assert.Equal(t, []string{"T1"}, texts(pool.Themes.Items("Q1")))
	})

	t.Run("unlabelled table uses positional columns", func(t *testing.T) {
		items := []any{
			[]any{"col a", "col b"},
			[]any{"Card 1", "Party"},
			[]any{"  ", "Party"},
			[]any{"Card 2"},
		}
		pool, err := Normalize(items, Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{"Party", DefaultTheme}, pool.Themes.Names())
		assert.Equal(t, []string{"Card 1"}, texts(pool.Themes.Items("Party")))
		assert.Equal(t, []string{"Card 2"}, texts(pool.Themes.Items(DefaultTheme)))
	})

	t.Run("single column has no topic", func(t *testing.T) {
		items := []any{[]any{"Lines"}, []any{"one"}, []any{"two"}}
		pool, err := Normalize(items, Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, texts(pool.Themes.Items(DefaultTheme)))
	})

	t.Run("labelled content without topic", func(t *testing.T) {
		items := []any{[]any{"notes", "Question"}, []any{"n", "Q"}}
		pool, err := Normalize(items, Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{DefaultTheme}, pool.Themes.Names())
		assert.Equal(t, []string{"Q"}, texts(pool.Themes.Items(DefaultTheme)))
	})

	t.Run("numbers become text", func(t *testing.T) {
		pool, err := NormalizePayload(decodeString(t, `[["text"],[42],[1.5]]`), Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{"42", "1.5"}, texts(pool.Themes.Items(DefaultTheme)))
	})

	t.Run("header only is no content", func(t *testing.T) {
		_, err := Normalize([]any{[]any{"question"}}, Classic)
		assert.ErrorIs(t, err, ErrNoCardContent)
	})

	t.Run("empty input is an empty pool", func(t *testing.T) {
		pool, err := Normalize(nil, Classic)
		require.NoError(t, err)
		assert.True(t, pool.Empty())
	})

	t.Run("scalars are malformed", func(t *testing.T) {
		_, err := Normalize([]any{"a"}, Classic)
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("mixed shapes skip the odd rows", func(t *testing.T) {
		items := []any{[]any{"question"}, []any{"ok"}, map[string]any{"question": "skipped"}}
		pool, err := Normalize(items, Classic)
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, texts(pool.Themes.Items(DefaultTheme)))
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	payload := decodeString(t, `{"data": [["topic","question"],["A","1"],["B","2"],["A","3"]]}`)

	first, err := NormalizePayload(payload, Classic)
	require.NoError(t, err)
	second, err := NormalizePayload(payload, Classic)
	require.NoError(t, err)

	assert.Equal(t, first.Themes.Names(), second.Themes.Names())
	for _, name := range first.Themes.Names() {
		assert.Equal(t, texts(first.Themes.Items(name)), texts(second.Themes.Items(name)))
	}
	assert.NotEqual(t, first.Themes.Items("A")[0].ID, second.Themes.Items("A")[0].ID)
}

func TestNormalizeTruthOrDare(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		items := []any{
			[]any{"Truth", "Dare"},
			[]any{"t1", "d1"},
			[]any{"t2", ""},
			[]any{"", "d2"},
		}
		pool, err := Normalize(items, TruthOrDare)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, texts(pool.Dual.Truth))
		assert.Equal(t, []string{"d1", "d2"}, texts(pool.Dual.Dare))
		assert.Equal(t, "truth", pool.Dual.Truth[0].Tag)
		assert.Equal(t, "dare", pool.Dual.Dare[0].Tag)
	})

	t.Run("records skip rows without either field", func(t *testing.T) {
		in := `[{"sự thật": "t1"}, {"thử thách": "d1"}, {"other": "x"}, {"truth": "t2", "dare": "d2"}]`
		pool, err := NormalizePayload(decodeString(t, in), TruthOrDare)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, texts(pool.Dual.Truth))
		assert.Equal(t, []string{"d1", "d2"}, texts(pool.Dual.Dare))
	})

	t.Run("type and content rows", func(t *testing.T) {
		items := []any{
			[]any{"type", "content"},
			[]any{"Truth", "t1"},
			[]any{"dare", "d1"},
			[]any{"other", "x"},
		}
		pool, err := Normalize(items, TruthOrDare)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, texts(pool.Dual.Truth))
		assert.Equal(t, []string{"d1"}, texts(pool.Dual.Dare))
	})
}

func TestNormalizeFortune(t *testing.T) {
	in := `[
		{"name": "Quẻ 1", "content": "A b C d", "interpretation": "good", "type": 1},
		{"tên quẻ": "Quẻ 2", "lời thơ": "x", "ý nghĩa": "ok", "loại": "3"},
		{"name": "Quẻ 3", "content": "y", "type": "lucky"},
		{"name": "Quẻ 4", "content": "z"},
		{"name": "", "content": "skipped"},
		{"name": "no content"}
	]`

	pool, err := NormalizePayload(decodeString(t, in), Fortune)
	require.NoError(t, err)
	require.Len(t, pool.Fortunes, 4)

	assert.Equal(t, "Quẻ 1", pool.Fortunes[0].Name)
	assert.Equal(t, 1, pool.Fortunes[0].WeightClass)
	assert.Equal(t, "good", pool.Fortunes[0].Interpretation)
	assert.Equal(t, "A b\nC d", pool.Fortunes[0].Verse())

	assert.Equal(t, "Quẻ 2", pool.Fortunes[1].Name)
	assert.Equal(t, 3, pool.Fortunes[1].WeightClass)
	assert.Equal(t, "ok", pool.Fortunes[1].Interpretation)

	assert.Equal(t, 0, pool.Fortunes[2].WeightClass)
	assert.Equal(t, 0, pool.Fortunes[3].WeightClass)

	for _, f := range pool.Fortunes {
		assert.NotEmpty(t, f.ID)
	}
}

func TestNormalizePayloadMalformed(t *testing.T) {
	_, err := NormalizePayload(decodeString(t, `{"message": "error"}`), Classic)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"classic": Classic, "TOD": TruthOrDare, "fortune": Fortune} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("poker")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestVerse(t *testing.T) {
	assert.Equal(t, "Trời quang\nGió thuận", Verse("  Trời quang   Gió thuận "))
	assert.Equal(t, "all lower case", Verse("all lower case"))
	assert.Equal(t, "", Verse("   "))
}

func TestFallback(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		fb, err := DefaultFallback()
		require.NoError(t, err)

		lib := fb.Library()
		assert.Equal(t, 2, lib.Themes.Len())
		assert.Contains(t, lib.Themes.Names(), "Vũ Trụ Thông Điệp (Offline)")
		assert.NotEmpty(t, lib.Dual.Truth)
		assert.NotEmpty(t, lib.Dual.Dare)
		assert.NotEmpty(t, lib.Fortunes)
	})

	dir := t.TempDir()

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "deck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
themes:
  - name: Home
    cards: [one, two]
truths: [t]
dares: [d]
fortunes:
  - name: F
    content: C
    type: 2
`), 0o644))

		lib, err := LoadFallbackFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, texts(lib.Themes.Items("Home")))
		assert.Equal(t, []string{"t"}, texts(lib.Dual.Truth))
		require.Len(t, lib.Fortunes, 1)
		assert.Equal(t, 2, lib.Fortunes[0].WeightClass)
	})

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(dir, "deck.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"classic": [["topic", "question"], ["A", "q"]],
			"tod": [{"truth": "t", "dare": "d"}],
			"fortune": [{"name": "F", "content": "C"}]
		}`), 0o644))

		lib, err := LoadFallbackFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, lib.Themes.Names())
		assert.Equal(t, []string{"d"}, texts(lib.Dual.Dare))
		assert.Len(t, lib.Fortunes, 1)
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "deck.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		_, err := LoadFallbackFile(path)
		assert.Error(t, err)
	})
}
