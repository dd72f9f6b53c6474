// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries used for conditional
// responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-route-errors/internal/domain"
)

// UsersStats returns the number of live users and the greatest UpdatedAt
// among them. maxUpdatedAt is nil when there are no users.
func UsersStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, nil, errors.Wrap(err, "count users")
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.User{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, errors.Wrap(err, "latest user update")
	}
	return count, &row.UpdatedAt, nil
}
