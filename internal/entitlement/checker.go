package entitlement

import (
	"context"
	"fmt"
	"strings"

	"samserver/internal/infra"
	"samserver/internal/sqlinline"
)

// Checker resolves feature entitlements. A per-user row wins; when the user
// has no row the global flag decides; when neither exists the feature is off.
// Hard lookup failures never read as enabled.
type Checker struct {
	sql infra.SQLExecutor
}

func NewChecker(sql infra.SQLExecutor) *Checker {
	return &Checker{sql: sql}
}

// Enabled reports whether the feature is enabled for the user.
func (c *Checker) Enabled(ctx context.Context, userID, feature string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(feature) == "" {
		return false, fmt.Errorf("feature name is required")
	}

	var enabled bool
	row := c.sql.QueryRow(ctx, sqlinline.QSelectUserFeature, userID, feature)
	err := row.Scan(&enabled)
	if err == nil {
		return enabled, nil
	}
	if !infra.IsNoRows(err) {
		return false, fmt.Errorf("user feature lookup: %w", err)
	}

	row = c.sql.QueryRow(ctx, sqlinline.QSelectGlobalFeature, feature)
	err = row.Scan(&enabled)
	if err == nil {
		return enabled, nil
	}
	if infra.IsNoRows(err) {
		return false, nil
	}
	return false, fmt.Errorf("global feature lookup: %w", err)
}
