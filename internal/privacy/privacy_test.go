package privacy

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deadlock-api/gatekeeper/internal/resultcache"
)

// fakeStore backs a Guard in tests without a real Postgres instance: it
// keeps a protected set in memory and records every Exec statement.
type fakeStore struct {
	protected map[int64]bool
	execs     []string
}

func (f *fakeStore) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	accountID := args[0].(int64)
	count := 0
	if f.protected[accountID] {
		count = 1
	}
	return fakeRow{count: count}
}

func (f *fakeStore) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	accountID := args[0].(int64)
	f.execs = append(f.execs, sql)
	if f.protected == nil {
		f.protected = map[int64]bool{}
	}
	switch {
	case contains(sql, "INSERT"):
		f.protected[accountID] = true
	case contains(sql, "DELETE"):
		delete(f.protected, accountID)
	}
	return pgconn.CommandTag{}, nil
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

type fakeRow struct {
	count int
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int)) = r.count
	return nil
}

func newTestGuard(protected ...int64) (*Guard, *fakeStore) {
	fs := &fakeStore{protected: map[int64]bool{}}
	for _, id := range protected {
		fs.protected[id] = true
	}
	return &Guard{metaDB: fs, cache: resultcache.New[bool]("test_protected_account")}, fs
}

func TestIsProtected(t *testing.T) {
	g, _ := newTestGuard(42)

	protected, err := g.IsProtected(context.Background(), 42)
	if err != nil {
		t.Fatalf("IsProtected() error = %v", err)
	}
	if !protected {
		t.Error("expected account 42 to be protected")
	}

	protected, err = g.IsProtected(context.Background(), 7)
	if err != nil {
		t.Fatalf("IsProtected() error = %v", err)
	}
	if protected {
		t.Error("expected account 7 to not be protected")
	}
}

func TestFilter_RemovesProtectedIDs(t *testing.T) {
	g, _ := newTestGuard(42)

	allowed, err := g.Filter(context.Background(), []int64{1, 42, 2})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(allowed) != 2 || allowed[0] != 1 || allowed[1] != 2 {
		t.Errorf("allowed = %v, want [1 2]", allowed)
	}
}

func TestFilter_AllProtectedReturnsForbidden(t *testing.T) {
	g, _ := newTestGuard(42)

	_, err := g.Filter(context.Background(), []int64{42})
	if err == nil {
		t.Fatal("expected an error when every id is protected")
	}
}

func TestFilter_EmptyInput(t *testing.T) {
	g, _ := newTestGuard()

	allowed, err := g.Filter(context.Background(), nil)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(allowed) != 0 {
		t.Errorf("allowed = %v, want empty", allowed)
	}
}

func TestOptOut_RecordsInBothStores(t *testing.T) {
	g, meta := newTestGuard()
	analytics := &fakeStore{protected: map[int64]bool{}}
	g.analyticsDB = analytics

	if err := g.OptOut(context.Background(), 99); err != nil {
		t.Fatalf("OptOut() error = %v", err)
	}
	if !meta.protected[99] {
		t.Error("expected account 99 protected in metadata store")
	}
	if !analytics.protected[99] {
		t.Error("expected account 99 protected in analytics mirror")
	}

	protected, err := g.IsProtected(context.Background(), 99)
	if err != nil {
		t.Fatalf("IsProtected() error = %v", err)
	}
	if !protected {
		t.Error("expected cache to reflect the fresh opt-out after invalidation")
	}
}

func TestOptIn_ClearsBothStores(t *testing.T) {
	g, meta := newTestGuard(99)
	analytics := &fakeStore{protected: map[int64]bool{99: true}}
	g.analyticsDB = analytics

	if err := g.OptIn(context.Background(), 99); err != nil {
		t.Fatalf("OptIn() error = %v", err)
	}
	if meta.protected[99] {
		t.Error("expected account 99 to be cleared from metadata store")
	}
	if analytics.protected[99] {
		t.Error("expected account 99 to be cleared from analytics mirror")
	}
}

func TestOptOut_WithoutAnalyticsMirror(t *testing.T) {
	g, _ := newTestGuard()
	if err := g.OptOut(context.Background(), 1); err != nil {
		t.Fatalf("OptOut() error = %v", err)
	}
}
