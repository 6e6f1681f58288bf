// Package privacy implements the data opt-out path: account ids in the
// protected set are filtered out of every analytics response. The set is
// written to the metadata store (source of truth for the opt-out/opt-in
// handlers) and mirrored into the analytics store, where a row-level
// security policy enforces it at the query layer independent of this
// package's in-process Filter helper.
package privacy

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/resultcache"
)

// store is the subset of *pgxpool.Pool the protected-accounts table
// needs, narrow enough that tests can satisfy it with a fake.
type store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Guard filters account ids against the protected set and keeps the
// metadata and analytics stores' copies of that set in sync.
type Guard struct {
	metaDB      store
	analyticsDB store
	cache       *resultcache.Cache[bool]
}

// New builds a Guard. analyticsDB may be nil in contexts that never
// mirror opt-outs (e.g. a metadata-only worker); OptOut/OptIn then only
// write the source-of-truth row in metaDB.
func New(metaDB, analyticsDB *pgxpool.Pool) *Guard {
	g := &Guard{metaDB: metaDB, cache: resultcache.New[bool]("protected_account")}
	if analyticsDB != nil {
		g.analyticsDB = analyticsDB
	}
	return g
}

// IsProtected reports whether accountID has opted out, caching the
// result for an hour so the common case (almost nobody is protected)
// doesn't cost a query per request.
func (g *Guard) IsProtected(ctx context.Context, accountID int64) (bool, error) {
	return g.cache.GetOrCompute(ctx, fmt.Sprintf("%d", accountID), time.Hour, func(ctx context.Context) (bool, error) {
		var count int
		err := g.metaDB.QueryRow(ctx,
			`SELECT COUNT(*) FROM protected_accounts WHERE account_id = $1`, accountID,
		).Scan(&count)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

// Filter removes protected ids from accountIDs. If every id in the input
// is protected, it returns apierr.Forbidden("protected user") rather than
// an empty, seemingly-valid list.
func (g *Guard) Filter(ctx context.Context, accountIDs []int64) ([]int64, error) {
	if len(accountIDs) == 0 {
		return accountIDs, nil
	}

	allowed := make([]int64, 0, len(accountIDs))
	for _, id := range accountIDs {
		protected, err := g.IsProtected(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("privacy: checking protected status: %w", err)
		}
		if !protected {
			allowed = append(allowed, id)
		}
	}

	if len(allowed) == 0 {
		return nil, apierr.Forbidden("protected user", nil)
	}
	return allowed, nil
}

// OptOut adds accountID to the protected set in both stores. The metadata
// store write is authoritative and happens first; if the analytics mirror
// write then fails, OptOut returns that error with the metadata row
// already in place. The row-level security policy there is a defense in
// depth layer, not the only enforcement.
func (g *Guard) OptOut(ctx context.Context, accountID int64) error {
	if _, err := g.metaDB.Exec(ctx,
		`INSERT INTO protected_accounts (account_id) VALUES ($1) ON CONFLICT DO NOTHING`, accountID,
	); err != nil {
		return fmt.Errorf("privacy: recording opt-out: %w", err)
	}

	g.cache.Invalidate(fmt.Sprintf("%d", accountID))

	if g.analyticsDB == nil {
		return nil
	}
	if _, err := g.analyticsDB.Exec(ctx,
		`INSERT INTO protected_accounts (account_id) VALUES ($1) ON CONFLICT DO NOTHING`, accountID,
	); err != nil {
		return fmt.Errorf("privacy: mirroring opt-out to analytics store: %w", err)
	}
	return nil
}

// OptIn removes accountID from the protected set in both stores.
func (g *Guard) OptIn(ctx context.Context, accountID int64) error {
	if _, err := g.metaDB.Exec(ctx,
		`DELETE FROM protected_accounts WHERE account_id = $1`, accountID,
	); err != nil {
		return fmt.Errorf("privacy: recording opt-in: %w", err)
	}

	g.cache.Invalidate(fmt.Sprintf("%d", accountID))

	if g.analyticsDB == nil {
		return nil
	}
	if _, err := g.analyticsDB.Exec(ctx,
		`DELETE FROM protected_accounts WHERE account_id = $1`, accountID,
	); err != nil {
		return fmt.Errorf("privacy: mirroring opt-in to analytics store: %w", err)
	}
	return nil
}
