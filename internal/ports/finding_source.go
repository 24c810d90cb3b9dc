package ports

import (
	"context"

	"dbdoc/internal/domain/reconcile"
)

// FindingSource enumerates tables and columns that have no COMMENT.
type FindingSource interface {
	ListFindings(ctx context.Context) ([]reconcile.Finding, error)
}
