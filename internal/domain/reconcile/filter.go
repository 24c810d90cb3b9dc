package reconcile

import "strings"

// FilterSet drops findings that belong to system schemas, system roles or
// personal schemas. The zero value keeps everything.
type FilterSet struct {
	ExcludeSchemas        []string
	ExcludeOwners         []string
	ExcludeSchemaPrefixes []string
}

func DefaultPublishFilters() FilterSet {
	return FilterSet{
		ExcludeSchemas:        []string{"information_schema", "pg_catalog"},
		ExcludeOwners:         []string{"rdsadmin"},
		ExcludeSchemaPrefixes: []string{"udb_"},
	}
}

func (s FilterSet) Excludes(f Finding) bool {
	for _, schema := range s.ExcludeSchemas {
		if f.Schema == schema {
			return true
		}
	}
	for _, owner := range s.ExcludeOwners {
		if f.Owner == owner {
			return true
		}
	}
	for _, prefix := range s.ExcludeSchemaPrefixes {
		if prefix != "" && strings.HasPrefix(f.Schema, prefix) {
			return true
		}
	}
	return false
}

func (s FilterSet) Apply(findings []Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if s.Excludes(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}
