package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// DefaultVocabulary holds the common field names column names are matched
// against.
var DefaultVocabulary = []string{
	"name", "id", "date", "time", "price", "amount", "count", "total", "value", "description",
}

// TypoConfig tunes the typo heuristic. Similarities are on a 0-1 scale.
type TypoConfig struct {
	Vocabulary          []string
	ColumnCutoff        float64
	DataCutoff          float64
	MaxColumnCandidates int
	MaxDataCandidates   int
	// RareMaxCount is the highest occurrence count of a "rare" value; values
	// seen more often are "common".
	RareMaxCount int
}

func DefaultTypoConfig() TypoConfig {
	return TypoConfig{
		Vocabulary:          DefaultVocabulary,
		ColumnCutoff:        0.6,
		DataCutoff:          0.8,
		MaxColumnCandidates: 3,
		MaxDataCandidates:   2,
		RareMaxCount:        2,
	}
}

func (c TypoConfig) withDefaults() TypoConfig {
	d := DefaultTypoConfig()
	if len(c.Vocabulary) == 0 {
		c.Vocabulary = d.Vocabulary
	}
	if c.ColumnCutoff <= 0 {
		c.ColumnCutoff = d.ColumnCutoff
	}
	if c.DataCutoff <= 0 {
		c.DataCutoff = d.DataCutoff
	}
	if c.MaxColumnCandidates <= 0 {
		c.MaxColumnCandidates = d.MaxColumnCandidates
	}
	if c.MaxDataCandidates <= 0 {
		c.MaxDataCandidates = d.MaxDataCandidates
	}
	if c.RareMaxCount <= 0 {
		c.RareMaxCount = d.RareMaxCount
	}
	return c
}

// Suggestions pairs both heuristics' output.
type Suggestions struct {
	Columns map[string][]string `json:"column_suggestions"`
	Data    map[string][]string `json:"data_suggestions"`
}

// SuggestTypos runs the column heuristic and, when column is set, the data
// heuristic on that column.
func (e *Engine) SuggestTypos(t *table.Table, column string) Suggestions {
	s := Suggestions{Columns: e.SuggestColumnTypos(t), Data: map[string][]string{}}
	if column != "" {
		s.Data = e.SuggestDataTypos(t, column)
	}
	return s
}

// SuggestColumnTypos maps column names that look like misspelled vocabulary
// words to their closest vocabulary matches. Names already in the
// vocabulary, ignoring case, are skipped.
func (e *Engine) SuggestColumnTypos(t *table.Table) map[string][]string {
	return suggestColumnTypos(t, e.typos)
}

// SuggestDataTypos maps rare values of a text column to similar common
// values of the same column. Unknown or non-text columns yield an empty map.
func (e *Engine) SuggestDataTypos(t *table.Table, column string) map[string][]string {
	return suggestDataTypos(t, column, e.typos)
}

func suggestColumnTypos(t *table.Table, cfg TypoConfig) map[string][]string {
	out := map[string][]string{}
	if t == nil {
		return out
	}
	vocab := make(map[string]struct{}, len(cfg.Vocabulary))
	for _, v := range cfg.Vocabulary {
		vocab[strings.ToLower(v)] = struct{}{}
	}
	for _, name := range t.ColumnNames() {
		lower := strings.ToLower(name)
		if _, known := vocab[lower]; known {
			continue
		}
		if matches := closeMatches(lower, cfg.Vocabulary, cfg.MaxColumnCandidates, cfg.ColumnCutoff); len(matches) > 0 {
			out[name] = matches
		}
	}
	return out
}

func suggestDataTypos(t *table.Table, column string, cfg TypoConfig) map[string][]string {
	out := map[string][]string{}
	if t == nil {
		return out
	}
	col, ok := t.Column(column)
	if !ok || col.Kind != table.KindText {
		return out
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	var common, rare []string
	for _, s := range order {
		if counts[s] > cfg.RareMaxCount {
			common = append(common, s)
		} else {
			rare = append(rare, s)
		}
	}
	if len(common) == 0 {
		return out
	}
	for _, s := range rare {
		if matches := closeMatches(s, common, cfg.MaxDataCandidates, cfg.DataCutoff); len(matches) > 0 {
			out[s] = matches
		}
	}
	return out
}

// Similarity is the normalized Levenshtein similarity of a and b.
func Similarity(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

// closeMatches returns up to n candidates scoring at least cutoff, best
// first; ties keep candidate order.
func closeMatches(word string, candidates []string, n int, cutoff float64) []string {
	type scored struct {
		s     string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if c == word {
			continue
		}
		if score := Similarity(word, c); score >= cutoff {
			hits = append(hits, scored{c, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.s
	}
	return out
}

// FixDataTypos replaces whole cell values of one column in a single pass:
// every cell whose text equals a key takes that key's replacement, so chains
// like A→B, B→C are not followed.
func (e *Engine) FixDataTypos(t *table.Table, column string, corrections map[string]string) Outcome {
	step := Step{Kind: OpFixDataTypos, Column: column, Mapping: corrections}
	return e.run(step, t, func(t *table.Table) (change, *OpError) {
		if err := requireColumns(t, column); err != nil {
			return change{}, err
		}
		if len(corrections) == 0 {
			return change{}, validationf("no corrections given")
		}
		col, _ := t.Column(column)

		replacements := make(map[string]any, len(corrections))
		for _, from := range sortedKeys(corrections) {
			to := corrections[from]
			v, ok := table.Coerce(col.Kind, to)
			if !ok || v == nil {
				return change{}, parseErr(nil, "replacement '%s' is not a valid %s value", to, col.Kind)
			}
			replacements[from] = v
		}

		values := make([]any, col.Len())
		changed := 0
		for i, v := range col.Values {
			values[i] = v
			if v == nil {
				continue
			}
			if repl, ok := replacements[table.Format(v)]; ok {
				values[i] = repl
				changed++
			}
		}

		out := t
		if changed > 0 {
			out = mustWith(t, &table.Column{Name: col.Name, Kind: col.Kind, Values: values})
		}
		return change{
			table: out,
			message: fmt.Sprintf("Successfully fixed %d typos in column '%s' (%d values changed)",
				len(corrections), column, changed),
		}, nil
	})
}
