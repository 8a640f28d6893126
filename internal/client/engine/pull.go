package engine

import (
	"context"
)

// Pull fetches every remote record of the table updated strictly after
// the local cursor and replaces the local copies, tombstones included.
// The cursor is derived on the fly as the newest live updated_at in the
// local table; a cold table yields the zero cursor and a full hydration.
// Returns the number of records applied.
func (e *Engine) Pull(ctx context.Context, table string) (int, error) {
	cursor, err := e.store.MaxUpdatedAt(ctx, table)
	if err != nil {
		return 0, err
	}

	recs, err := e.remote.SelectUpdatedSince(ctx, table, cursor)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, rec := range recs {
		if err := e.store.Put(ctx, table, rec); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// PullAll reconciles every syncable table. A failing table is logged and
// skipped so the rest still refresh. Returns the total number of records
// applied.
func (e *Engine) PullAll(ctx context.Context) int {
	total := 0
	for _, table := range e.tables {
		n, err := e.Pull(ctx, table)
		if err != nil {
			e.logger.Warn(ctx, "pull failed", "table", table, "error", err)
			continue
		}
		total += n
	}
	return total
}
