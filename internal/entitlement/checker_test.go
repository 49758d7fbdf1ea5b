package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"samserver/internal/sqlinline"
)

type featureRow struct {
	enabled bool
	err     error
}

func (r featureRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if v, ok := dest[0].(*bool); ok {
		*v = r.enabled
	}
	return nil
}

type fakeFeatureSQL struct {
	userRow   featureRow
	globalRow featureRow
}

func (f *fakeFeatureSQL) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeFeatureSQL) QueryRow(_ context.Context, query string, _ ...any) pgx.Row {
	switch query {
	case sqlinline.QSelectUserFeature:
		return f.userRow
	case sqlinline.QSelectGlobalFeature:
		return f.globalRow
	}
	return featureRow{err: errors.New("unexpected query")}
}

func (f *fakeFeatureSQL) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestEnabledUserRowOverridesGlobal(t *testing.T) {
	checker := NewChecker(&fakeFeatureSQL{
		userRow:   featureRow{enabled: false},
		globalRow: featureRow{enabled: true},
	})
	enabled, err := checker.Enabled(context.Background(), "user-1", "generador")
	if err != nil {
		t.Fatalf("Enabled() error: %v", err)
	}
	if enabled {
		t.Fatal("per-user row disables the feature even when the global flag is on")
	}
}

func TestEnabledFallsBackToGlobalFlag(t *testing.T) {
	checker := NewChecker(&fakeFeatureSQL{
		userRow:   featureRow{err: pgx.ErrNoRows},
		globalRow: featureRow{enabled: true},
	})
	enabled, err := checker.Enabled(context.Background(), "user-1", "generador")
	if err != nil {
		t.Fatalf("Enabled() error: %v", err)
	}
	if !enabled {
		t.Fatal("expected global flag fallback to enable the feature")
	}
}

func TestEnabledDefaultsFalseWhenNoRows(t *testing.T) {
	checker := NewChecker(&fakeFeatureSQL{
		userRow:   featureRow{err: pgx.ErrNoRows},
		globalRow: featureRow{err: pgx.ErrNoRows},
	})
	enabled, err := checker.Enabled(context.Background(), "user-1", "generador")
	if err != nil {
		t.Fatalf("Enabled() error: %v", err)
	}
	if enabled {
		t.Fatal("feature with no flags anywhere must read as disabled")
	}
}

func TestEnabledHardErrorPropagates(t *testing.T) {
	checker := NewChecker(&fakeFeatureSQL{
		userRow: featureRow{err: errors.New("connection refused")},
	})
	if _, err := checker.Enabled(context.Background(), "user-1", "generador"); err == nil {
		t.Fatal("hard lookup failure must propagate, never read as enabled")
	}
}

func TestEnabledRequiresUserAndFeature(t *testing.T) {
	checker := NewChecker(&fakeFeatureSQL{})
	if _, err := checker.Enabled(context.Background(), "", "generador"); err == nil {
		t.Fatal("empty user id must be rejected")
	}
	if _, err := checker.Enabled(context.Background(), "user-1", " "); err == nil {
		t.Fatal("empty feature name must be rejected")
	}
}
