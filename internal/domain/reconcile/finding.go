package reconcile

import (
	"fmt"
	"strings"
)

type ObjectKind string

const (
	KindTable  ObjectKind = "table"
	KindColumn ObjectKind = "column"
)

const (
	objectTypeTable        = "TABLE"
	objectTypeColumnPrefix = "COLUMN: "
)

// Finding is one table or column that currently has no COMMENT.
type Finding struct {
	TableOID uint32
	Schema   string
	Table    string
	Kind     ObjectKind
	Column   string
	Owner    string
}

// NewFinding validates the kind/column invariant.
func NewFinding(schema, table string, kind ObjectKind, column, owner string) (Finding, error) {
	f := Finding{
		Schema: schema,
		Table:  table,
		Kind:   kind,
		Column: column,
		Owner:  owner,
	}
	if err := f.Validate(); err != nil {
		return Finding{}, err
	}
	return f, nil
}

func (f Finding) Validate() error {
	if f.Schema == "" || f.Table == "" {
		return fmt.Errorf("%w: schema and table are required", ErrInvalidFinding)
	}
	switch f.Kind {
	case KindTable:
		if f.Column != "" {
			return fmt.Errorf("%w: table finding %s.%s carries column %q", ErrInvalidFinding, f.Schema, f.Table, f.Column)
		}
	case KindColumn:
		if f.Column == "" {
			return fmt.Errorf("%w: column finding %s.%s has no column name", ErrInvalidFinding, f.Schema, f.Table)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFinding, f.Kind)
	}
	return nil
}

// Summary is the join key against tracker issues. It must never change shape:
// existing issues are found by it.
func (f Finding) Summary() string {
	if f.Kind == KindColumn {
		return fmt.Sprintf("Missing COMMENT on %s.%s.%s", f.Schema, f.Table, f.Column)
	}
	return fmt.Sprintf("Missing COMMENT on %s.%s", f.Schema, f.Table)
}

func (f Finding) Description() string {
	const tail = "Please add a COMMENT to meet documentation standards."
	if f.Kind == KindColumn {
		return fmt.Sprintf("The column `%s` on table `%s.%s` is missing a COMMENT. %s", f.Column, f.Schema, f.Table, tail)
	}
	return fmt.Sprintf("The table `%s.%s` is missing a COMMENT. %s", f.Schema, f.Table, tail)
}

// ParseObjectType decodes the catalog obj_type column: "TABLE" or "COLUMN: <name>".
func ParseObjectType(raw string) (ObjectKind, string, error) {
	if raw == objectTypeTable {
		return KindTable, "", nil
	}
	if strings.HasPrefix(raw, objectTypeColumnPrefix) {
		column := strings.TrimPrefix(raw, objectTypeColumnPrefix)
		if column == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidObjectType, raw)
		}
		return KindColumn, column, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidObjectType, raw)
}

// Summaries returns the summary set of findings.
func Summaries(findings []Finding) map[string]struct{} {
	out := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		out[f.Summary()] = struct{}{}
	}
	return out
}
