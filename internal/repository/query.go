package repository

import (
	"context"

	"github.com/yakoovad/teambuilder/internal/db"
)

// queryBuilder is satisfied by every bob query.
type queryBuilder interface {
	Build(ctx context.Context) (string, []any, error)
}

func execQuery(ctx context.Context, e db.Executor, q queryBuilder) error {
	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

// nonNil keeps pgx from encoding an empty set as NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
