package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/domain/reconcile"
	"dbdoc/internal/errs"
	"dbdoc/internal/ports"
)

type catalogRow struct {
	TableOID   int64  `gorm:"column:table_oid"`
	SchemaName string `gorm:"column:schema_name"`
	TableName  string `gorm:"column:table_name"`
	Owner      string `gorm:"column:owner"`
	ObjType    string `gorm:"column:obj_type"`
}

// Source reads undocumented objects from the database catalog.
type Source struct {
	db    *gorm.DB
	query string
}

var _ ports.FindingSource = (*Source)(nil)

// NewSource uses query when non-empty, UncommentedObjectsQuery otherwise. A
// custom query must return the same five columns.
func NewSource(db *gorm.DB, query string) *Source {
	if strings.TrimSpace(query) == "" {
		query = UncommentedObjectsQuery
	}
	return &Source{db: db, query: query}
}

func (s *Source) ListFindings(ctx context.Context) ([]reconcile.Finding, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.db == nil {
		return nil, errors.New("catalog database is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.catalog"))

	var rows []catalogRow
	if err := s.db.WithContext(ctx).Raw(s.query).Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query uncommented objects")
	}

	findings := make([]reconcile.Finding, 0, len(rows))
	for _, row := range rows {
		finding, err := normalizeRow(row)
		if err != nil {
			logging.Warn(logCtx, "skipping catalog row",
				slog.String("schema", row.SchemaName),
				slog.String("table", row.TableName),
				slog.String("obj_type", row.ObjType),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		findings = append(findings, finding)
	}

	logging.Debug(logCtx, "catalog scanned", slog.Int("rows", len(rows)), slog.Int("findings", len(findings)))
	return findings, nil
}

func normalizeRow(row catalogRow) (reconcile.Finding, error) {
	kind, column, err := reconcile.ParseObjectType(row.ObjType)
	if err != nil {
		return reconcile.Finding{}, err
	}
	finding, err := reconcile.NewFinding(row.SchemaName, row.TableName, kind, column, row.Owner)
	if err != nil {
		return reconcile.Finding{}, err
	}
	finding.TableOID = uint32(row.TableOID)
	return finding, nil
}
