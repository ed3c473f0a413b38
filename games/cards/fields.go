/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Synonym tables, in priority order. Matching is exact after case folding
// and NFC normalisation, so accents still count.
var (
	contentFields        = []string{"question", "content", "text", "câu hỏi", "nội dung", "thẻ bài"}
	topicFields          = []string{"topic", "category", "theme", "chủ đề", "danh mục"}
	truthFields          = []string{"truth", "sự thật"}
	dareFields           = []string{"dare", "thử thách"}
	promptKindFields     = []string{"type", "kind", "loại", "topic", "category", "chủ đề"}
	fortuneNameFields    = []string{"name", "title", "tên quẻ", "tên", "quẻ"}
	fortuneContentFields = []string{"content", "poem", "verse", "text", "nội dung", "lời thơ"}
	interpretFields      = []string{"interpretation", "meaning", "explanation", "giải nghĩa", "luận giải", "ý nghĩa"}
	weightFields         = []string{"type", "class", "weight", "loại", "cấp"}
)

const (
	tagTruth = "truth"
	tagDare  = "dare"
)

func foldField(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func sameField(a, b string) bool {
	return foldField(a) == foldField(b)
}

// row is one data row with the field names that label its values: the
// header for tabular payloads, the keys for record payloads.
type row struct {
	names  []string
	values []any
}

// resolve returns the index of the first name matching the synonyms, trying
// synonyms in priority order, or -1.
func (r row) resolve(synonyms []string) int {
	folded := make([]string, len(r.names))
	for i, n := range r.names {
		folded[i] = foldField(n)
	}

	for _, syn := range synonyms {
		want := foldField(syn)
		for i, name := range folded {
			if name == want {
				return i
			}
		}
	}

	return -1
}

func (r row) text(i int) string {
	if i < 0 || i >= len(r.values) {
		return ""
	}
	return cellText(r.values[i])
}

func (r row) lookup(synonyms []string) (string, bool) {
	i := r.resolve(synonyms)
	if i < 0 {
		return "", false
	}
	return r.text(i), true
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any, *Object, map[string]any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// parseClass reads a weight class; anything non-numeric is the other bucket.
func parseClass(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}

	return int(f)
}
