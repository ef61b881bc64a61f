package transform

import (
	"math"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// Summary is the export dashboard's view of a table.
type Summary struct {
	TotalRows         int            `json:"total_rows"`
	TotalColumns      int            `json:"total_columns"`
	MemoryBytes       int64          `json:"memory_usage_bytes"`
	MemoryMB          float64        `json:"memory_usage_mb"`
	ColumnKinds       map[string]int `json:"column_types"`
	NullValues        int            `json:"null_values"`
	NullsByColumn     map[string]int `json:"null_counts_by_column"`
	DuplicateRows     int            `json:"duplicate_rows"`
	EstimatedCSVBytes int64          `json:"estimated_csv_size_bytes"`
	EstimatedCSVMB    float64        `json:"estimated_csv_size_mb"`
	NumericColumns    []string       `json:"numeric_columns"`
	TextColumns       []string       `json:"text_columns"`
	DateTimeColumns   []string       `json:"datetime_columns"`
	Quality           Quality        `json:"quality"`
}

// Quality ratings, from Quality.Score.
const (
	RatingExcellent        = "excellent"
	RatingGood             = "good"
	RatingNeedsImprovement = "needs_improvement"
)

// Quality is the data quality report. Percentages are 0-100, rounded to
// two decimals. ConsistencyScore drops as more distinct column kinds share
// the table.
type Quality struct {
	CompletenessPct  float64         `json:"completeness_pct"`
	AvgUniquenessPct float64         `json:"avg_uniqueness_pct"`
	ConsistencyScore float64         `json:"consistency_score"`
	Score            float64         `json:"score"`
	Rating           string          `json:"rating"`
	Columns          []ColumnQuality `json:"columns"`
}

// ColumnQuality is one row of the per-column quality breakdown.
type ColumnQuality struct {
	Name          string  `json:"name"`
	Kind          string  `json:"kind"`
	NonNull       int     `json:"non_null"`
	Nulls         int     `json:"nulls"`
	NullPct       float64 `json:"null_pct"`
	Unique        int     `json:"unique"`
	UniquenessPct float64 `json:"uniqueness_pct"`
}

// Summarize aggregates row and column counts, null counts, kind histograms
// and size estimates. The CSV size is measured by rendering the table.
// An empty table yields an ErrEmptyInput *OpError.
func Summarize(t *table.Table) (Summary, error) {
	if t == nil || t.NumRows() == 0 || t.NumCols() == 0 {
		return Summary{}, &OpError{Kind: ErrEmptyInput, Msg: "No data available for export"}
	}

	s := Summary{
		TotalRows:       t.NumRows(),
		TotalColumns:    t.NumCols(),
		MemoryBytes:     t.MemoryBytes(),
		ColumnKinds:     map[string]int{},
		NullsByColumn:   map[string]int{},
		DuplicateRows:   DuplicateRows(t),
		NumericColumns:  []string{},
		TextColumns:     []string{},
		DateTimeColumns: []string{},
	}
	for _, c := range t.Columns() {
		s.ColumnKinds[c.Kind.String()]++
		nulls := c.NullCount()
		s.NullsByColumn[c.Name] = nulls
		s.NullValues += nulls
		switch {
		case c.Kind.IsNumeric():
			s.NumericColumns = append(s.NumericColumns, c.Name)
		case c.Kind == table.KindText:
			s.TextColumns = append(s.TextColumns, c.Name)
		case c.Kind == table.KindDateTime:
			s.DateTimeColumns = append(s.DateTimeColumns, c.Name)
		}
	}
	s.Quality = assessQuality(t, s.NullValues, len(s.ColumnKinds))
	s.EstimatedCSVBytes = table.CSVSize(t)
	s.MemoryMB = megabytes(s.MemoryBytes)
	s.EstimatedCSVMB = megabytes(s.EstimatedCSVBytes)
	return s, nil
}

// assessQuality averages three scores: completeness, uniqueness (doubled,
// capped at 100) and kind consistency.
func assessQuality(t *table.Table, nulls, kinds int) Quality {
	rows := float64(t.NumRows())
	cells := rows * float64(t.NumCols())

	q := Quality{Columns: make([]ColumnQuality, 0, t.NumCols())}
	uniqSum := 0.0
	for _, c := range t.Columns() {
		distinct := make(map[string]struct{})
		for _, v := range c.Values {
			if v != nil {
				distinct[table.Key(v)] = struct{}{}
			}
		}
		n := c.NullCount()
		q.Columns = append(q.Columns, ColumnQuality{
			Name:          c.Name,
			Kind:          c.Kind.String(),
			NonNull:       c.Len() - n,
			Nulls:         n,
			NullPct:       round2(float64(n) / rows * 100),
			Unique:        len(distinct),
			UniquenessPct: round2(float64(len(distinct)) / rows * 100),
		})
		uniqSum += float64(len(distinct)) / rows * 100
	}

	completeness := (cells - float64(nulls)) / cells * 100
	avgUniq := uniqSum / float64(t.NumCols())
	consistency := math.Max(0, 100-float64(kinds)/float64(t.NumCols())*50)
	score := (completeness + math.Min(avgUniq*2, 100) + consistency) / 3

	q.CompletenessPct = round2(completeness)
	q.AvgUniquenessPct = round2(avgUniq)
	q.ConsistencyScore = round2(consistency)
	q.Score = round2(score)
	switch {
	case score >= 80:
		q.Rating = RatingExcellent
	case score >= 60:
		q.Rating = RatingGood
	default:
		q.Rating = RatingNeedsImprovement
	}
	return q
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func megabytes(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}
