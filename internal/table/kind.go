package table

import (
	"fmt"
	"strings"
)

// Kind is the scalar kind shared by every cell of a column.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindText
	KindBoolean
	KindDateTime
	KindCategorical
)

var kindNames = [...]string{
	KindInteger:     "int",
	KindFloat:       "float",
	KindText:        "string",
	KindBoolean:     "boolean",
	KindDateTime:    "datetime",
	KindCategorical: "category",
}

// kindAliases maps every accepted spelling to its Kind.
var kindAliases = map[string]Kind{
	"int":         KindInteger,
	"integer":     KindInteger,
	"int64":       KindInteger,
	"float":       KindFloat,
	"double":      KindFloat,
	"float64":     KindFloat,
	"string":      KindText,
	"str":         KindText,
	"text":        KindText,
	"boolean":     KindBoolean,
	"bool":        KindBoolean,
	"datetime":    KindDateTime,
	"date":        KindDateTime,
	"timestamp":   KindDateTime,
	"category":    KindCategorical,
	"categorical": KindCategorical,
	"enum":        KindCategorical,
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsNumeric reports whether the kind supports arithmetic statistics.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// IsTextual reports whether cells of this kind hold strings.
func (k Kind) IsTextual() bool {
	return k == KindText || k == KindCategorical
}

// ParseKind resolves a kind name or alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unsupported type %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
