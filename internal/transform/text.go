package transform

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/flowforge/internal/table"
)

// TextOp is a text operation name.
type TextOp string

const (
	TextUpper   TextOp = "upper"
	TextLower   TextOp = "lower"
	TextTitle   TextOp = "title"
	TextStrip   TextOp = "strip"
	TextReplace TextOp = "replace"
	TextExtract TextOp = "extract"
)

var textAliases = map[string]TextOp{
	"title-case":       TextTitle,
	"title_case":       TextTitle,
	"strip-whitespace": TextStrip,
	"strip_whitespace": TextStrip,
	"trim":             TextStrip,
}

func (o TextOp) canonical() TextOp {
	lower := strings.ToLower(string(o))
	if alias, ok := textAliases[lower]; ok {
		return alias
	}
	return TextOp(lower)
}

// TextParams configures TextOperation. Old and New are read by replace,
// Pattern by extract.
type TextParams struct {
	Column    string
	Operation TextOp
	Old       string
	New       string
	Pattern   string
}

func (p TextParams) step() Step {
	return Step{Kind: OpTextOperation, Column: p.Column, Operation: string(p.Operation), Old: p.Old, New: p.New, Pattern: p.Pattern}
}

// TextOperation rewrites a column as text. Nulls stay null. extract writes
// the first capture group to a new column named <column>_extracted, null
// where the pattern does not match.
func (e *Engine) TextOperation(t *table.Table, p TextParams) Outcome {
	return e.run(p.step(), t, func(t *table.Table) (change, *OpError) {
		if err := requireColumns(t, p.Column); err != nil {
			return change{}, err
		}
		col, _ := t.Column(p.Column)
		op := p.Operation.canonical()

		var out *table.Column
		switch op {
		case TextUpper:
			out = mapText(col, col.Name, strings.ToUpper)
		case TextLower:
			out = mapText(col, col.Name, strings.ToLower)
		case TextTitle:
			caser := cases.Title(language.Und)
			out = mapText(col, col.Name, caser.String)
		case TextStrip:
			out = mapText(col, col.Name, strings.TrimSpace)
		case TextReplace:
			if p.Old == "" {
				return change{}, validationf("replace requires a non-empty old value")
			}
			out = mapText(col, col.Name, func(s string) string {
				return strings.ReplaceAll(s, p.Old, p.New)
			})
		case TextExtract:
			re, err := compilePattern(p.Pattern)
			if err != nil {
				return change{}, err
			}
			out = extract(col, re)
		default:
			return change{}, validationf("unknown text operation '%s'", p.Operation)
		}

		return change{
			table:   mustWith(t, out),
			message: fmt.Sprintf("Applied %s operation to '%s'", op, p.Column),
		}, nil
	})
}

func mapText(c *table.Column, name string, f func(string) string) *table.Column {
	values := make([]any, c.Len())
	for i, v := range c.Values {
		if v != nil {
			values[i] = f(table.Format(v))
		}
	}
	return &table.Column{Name: name, Kind: table.KindText, Values: values}
}

func compilePattern(pattern string) (*regexp.Regexp, *OpError) {
	if pattern == "" {
		return nil, validationf("extract requires a pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, parseErr(err, "invalid pattern: %v", err)
	}
	if re.NumSubexp() < 1 {
		return nil, parseErr(nil, "pattern '%s' has no capture group", pattern)
	}
	return re, nil
}

func extract(c *table.Column, re *regexp.Regexp) *table.Column {
	values := make([]any, c.Len())
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		s := table.Format(v)
		m := re.FindStringSubmatchIndex(s)
		if m == nil || m[2] < 0 {
			continue
		}
		values[i] = s[m[2]:m[3]]
	}
	return &table.Column{Name: c.Name + "_extracted", Kind: table.KindText, Values: values}
}
