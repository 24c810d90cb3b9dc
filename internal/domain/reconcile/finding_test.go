package reconcile

import (
	"errors"
	"testing"
)

func TestFindingSummary(t *testing.T) {
	table, err := NewFinding("sales", "orders", KindTable, "", "alice")
	if err != nil {
		t.Fatalf("NewFinding(table) error = %v", err)
	}
	if got := table.Summary(); got != "Missing COMMENT on sales.orders" {
		t.Fatalf("table Summary() = %q", got)
	}

	column, err := NewFinding("sales", "orders", KindColumn, "order_id", "alice")
	if err != nil {
		t.Fatalf("NewFinding(column) error = %v", err)
	}
	if got := column.Summary(); got != "Missing COMMENT on sales.orders.order_id" {
		t.Fatalf("column Summary() = %q", got)
	}

	again, _ := NewFinding("sales", "orders", KindColumn, "order_id", "bob")
	if again.Summary() != column.Summary() {
		t.Fatalf("Summary() is not deterministic: %q vs %q", again.Summary(), column.Summary())
	}
}

func TestFindingDescriptionDiffersByKind(t *testing.T) {
	table := Finding{Schema: "sales", Table: "orders", Kind: KindTable}
	column := Finding{Schema: "sales", Table: "orders", Kind: KindColumn, Column: "total"}

	if got := table.Description(); got != "The table `sales.orders` is missing a COMMENT. Please add a COMMENT to meet documentation standards." {
		t.Fatalf("table Description() = %q", got)
	}
	if got := column.Description(); got != "The column `total` on table `sales.orders` is missing a COMMENT. Please add a COMMENT to meet documentation standards." {
		t.Fatalf("column Description() = %q", got)
	}
}

func TestNewFindingEnforcesColumnInvariant(t *testing.T) {
	cases := []struct {
		name   string
		kind   ObjectKind
		column string
	}{
		{name: "table with column", kind: KindTable, column: "id"},
		{name: "column without name", kind: KindColumn},
		{name: "unknown kind", kind: ObjectKind("view")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFinding("s", "t", tc.kind, tc.column, "o")
			if !errors.Is(err, ErrInvalidFinding) {
				t.Fatalf("NewFinding() error = %v, want ErrInvalidFinding", err)
			}
		})
	}
}

func TestParseObjectType(t *testing.T) {
	kind, column, err := ParseObjectType("TABLE")
	if err != nil || kind != KindTable || column != "" {
		t.Fatalf("ParseObjectType(TABLE) = %q, %q, %v", kind, column, err)
	}

	kind, column, err = ParseObjectType("COLUMN: created_at")
	if err != nil || kind != KindColumn || column != "created_at" {
		t.Fatalf("ParseObjectType(COLUMN) = %q, %q, %v", kind, column, err)
	}

	kind, column, err = ParseObjectType("COLUMN: odd: name")
	if err != nil || kind != KindColumn || column != "odd: name" {
		t.Fatalf("ParseObjectType(odd) = %q, %q, %v", kind, column, err)
	}

	for _, raw := range []string{"", "VIEW", "COLUMN: ", "column: x"} {
		if _, _, err := ParseObjectType(raw); !errors.Is(err, ErrInvalidObjectType) {
			t.Fatalf("ParseObjectType(%q) error = %v, want ErrInvalidObjectType", raw, err)
		}
	}
}

func TestFilterSetApply(t *testing.T) {
	findings := []Finding{
		{Schema: "sales", Table: "orders", Kind: KindTable, Owner: "alice"},
		{Schema: "pg_catalog", Table: "pg_class", Kind: KindTable, Owner: "postgres"},
		{Schema: "information_schema", Table: "tables", Kind: KindTable, Owner: "postgres"},
		{Schema: "ops", Table: "rds_heartbeat", Kind: KindTable, Owner: "rdsadmin"},
		{Schema: "udb_alice", Table: "scratch", Kind: KindTable, Owner: "alice"},
		{Schema: "ops", Table: "jobs", Kind: KindTable, Owner: "rds"},
	}

	kept := DefaultPublishFilters().Apply(findings)
	if len(kept) != 2 {
		t.Fatalf("Apply() kept %d findings: %#v", len(kept), kept)
	}
	if kept[0].Table != "orders" || kept[1].Table != "jobs" {
		t.Fatalf("Apply() kept = %#v", kept)
	}

	if got := (FilterSet{}).Apply(findings); len(got) != len(findings) {
		t.Fatalf("zero FilterSet dropped findings: %d", len(got))
	}
}

func TestOwnershipMapLookup(t *testing.T) {
	owners := OwnershipMap{"alice": "acc-alice", "blank": " "}

	if id, ok := owners.Resolve("alice"); !ok || id != "acc-alice" {
		t.Fatalf("Resolve(alice) = %q, %v", id, ok)
	}
	if _, err := owners.Lookup("service_account"); !errors.Is(err, ErrOwnershipMiss) {
		t.Fatalf("Lookup(service_account) error = %v", err)
	}
	if _, ok := owners.Resolve("blank"); ok {
		t.Fatalf("Resolve(blank) must miss")
	}

	merged := owners.Merge(OwnershipMap{"alice": "acc-alice-2", "bob": "acc-bob"})
	if merged["alice"] != "acc-alice-2" || merged["bob"] != "acc-bob" {
		t.Fatalf("Merge() = %#v", merged)
	}
	if owners["alice"] != "acc-alice" {
		t.Fatalf("Merge() mutated receiver")
	}
}

func TestStatusPolicy(t *testing.T) {
	policy := NewStatusPolicy(" DO NOT REMOVE ", nil)

	for _, status := range []string{"Done", "RESOLVED", " ended ", "closed"} {
		if !policy.IsClosed(TrackedIssue{Status: status}) {
			t.Fatalf("IsClosed(%q) = false", status)
		}
	}
	for _, status := range []string{"Open", "In Progress", "Reopened", ""} {
		if policy.IsClosed(TrackedIssue{Status: status}) {
			t.Fatalf("IsClosed(%q) = true", status)
		}
	}
	if !policy.IsSentinel(TrackedIssue{Summary: "DO NOT REMOVE"}) {
		t.Fatalf("IsSentinel() = false")
	}

	custom := NewStatusPolicy("", []string{"Won't Do"})
	if !custom.IsClosed(TrackedIssue{Status: "won't do"}) || custom.IsClosed(TrackedIssue{Status: "Done"}) {
		t.Fatalf("custom closed statuses not honored")
	}
	if custom.IsSentinel(TrackedIssue{Summary: ""}) {
		t.Fatalf("empty sentinel must not match")
	}
}
