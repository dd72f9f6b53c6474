package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-route-errors/internal/domain"
)

func TestUsersStats_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := UsersStats(context.Background(), db); err == nil {
		t.Fatal("expected error due to missing users table")
	}
}

func TestUsersStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	count, maxAt, err := UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestUsersStats_CountAndMax(t *testing.T) {
	db := newTestDB(t, &domain.User{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max

	for _, u := range []*domain.User{
		{ID: "a", Username: "a", Email: "a@example.com", Role: domain.RoleMember, CreatedAt: t1, UpdatedAt: t1},
		{ID: "b", Username: "b", Email: "b@example.com", Role: domain.RoleMember, CreatedAt: t2, UpdatedAt: t2},
	} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed %s: %v", u.ID, err)
		}
	}

	count, maxAt, err := UsersStats(context.Background(), db)
	if err != nil {
		t.Fatalf("UsersStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected max %v, got %v", t2, maxAt)
	}
}
