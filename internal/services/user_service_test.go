package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-route-errors/internal/apierror"
	"github.com/tbourn/go-route-errors/internal/domain"
	"github.com/tbourn/go-route-errors/internal/repo"
)

// ----- Fake repo -----

type fakeUserRepo struct {
	createUsername string
	createEmail    string
	createRole     string
	createErr      error

	users  map[string]*domain.User
	getErr error

	countTotal int64
	countErr   error

	pageOffset int
	pageLimit  int
	pageItems  []domain.User
	pageErr    error

	deletedID string
	deleteErr error
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, db *gorm.DB, username, email, role string) (*domain.User, error) {
	r.createUsername, r.createEmail, r.createRole = username, email, role
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.User{ID: "u1", Username: username, Email: email, Role: role}, nil
}

func (r *fakeUserRepo) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (r *fakeUserRepo) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return r.countTotal, r.countErr
}

func (r *fakeUserRepo) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	r.pageOffset, r.pageLimit = offset, limit
	return r.pageItems, r.pageErr
}

func (r *fakeUserRepo) DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	r.deletedID = id
	return r.deleteErr
}

// ----- Tests -----

func TestCreate_NormalizesAndPersists(t *testing.T) {
	fr := &fakeUserRepo{}
	s := NewUserService(nil, fr)

	u, err := s.Create(context.Background(), "  Alice ", " alice@example.com ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fr.createUsername != "alice" || fr.createEmail != "alice@example.com" || fr.createRole != domain.RoleMember {
		t.Fatalf("repo got %q %q %q", fr.createUsername, fr.createEmail, fr.createRole)
	}
	if u.Username != "alice" {
		t.Fatalf("user=%+v", u)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	s := NewUserService(nil, &fakeUserRepo{})
	cases := []struct {
		username, email, field string
	}{
		{"ab", "a@example.com", "username"},
		{"this-name-is-way-too-long-for-the-directory", "a@example.com", "username"},
		{"bad name", "a@example.com", "username"},
		{"-dash", "a@example.com", "username"},
		{"alice", "not-an-email", "email"},
	}
	for _, tc := range cases {
		_, err := s.Create(context.Background(), tc.username, tc.email)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%q/%q: expected ValidationError on %s, got %v", tc.username, tc.email, tc.field, err)
		}
	}
}

func TestCreate_DuplicateMapsToTaken(t *testing.T) {
	s := NewUserService(nil, &fakeUserRepo{createErr: repo.ErrDuplicate})
	if _, err := s.Create(context.Background(), "alice", "a@example.com"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestCreate_RepoFailurePassesThrough(t *testing.T) {
	boom := errors.New("disk I/O error")
	s := NewUserService(nil, &fakeUserRepo{createErr: boom})
	if _, err := s.Create(context.Background(), "alice", "a@example.com"); !errors.Is(err, boom) {
		t.Fatalf("expected raw failure, got %v", err)
	}
}

func TestGet(t *testing.T) {
	fr := &fakeUserRepo{users: map[string]*domain.User{"u1": {ID: "u1", Username: "alice"}}}
	s := NewUserService(nil, fr)

	if u, err := s.Get(context.Background(), "u1"); err != nil || u.Username != "alice" {
		t.Fatalf("Get: %v %+v", err, u)
	}
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListPage_DefaultsAndOffsets(t *testing.T) {
	fr := &fakeUserRepo{countTotal: 45, pageItems: []domain.User{{ID: "x"}}}
	s := NewUserService(nil, fr)

	items, total, err := s.ListPage(context.Background(), 3, 10)
	if err != nil || total != 45 || len(items) != 1 {
		t.Fatalf("ListPage: %v %d %d", err, total, len(items))
	}
	if fr.pageOffset != 20 || fr.pageLimit != 10 {
		t.Fatalf("offset/limit = %d/%d", fr.pageOffset, fr.pageLimit)
	}

	if _, _, err := s.ListPage(context.Background(), 0, 0); err != nil {
		t.Fatalf("ListPage defaults: %v", err)
	}
	if fr.pageOffset != 0 || fr.pageLimit != 20 {
		t.Fatalf("defaults offset/limit = %d/%d", fr.pageOffset, fr.pageLimit)
	}
}

func TestListPage_EmptyAndCountError(t *testing.T) {
	s := NewUserService(nil, &fakeUserRepo{})
	items, total, err := s.ListPage(context.Background(), 1, 10)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty: %v %d %v", err, total, items)
	}

	boom := errors.New("count failed")
	s = NewUserService(nil, &fakeUserRepo{countErr: boom})
	if _, _, err := s.ListPage(context.Background(), 1, 10); !errors.Is(err, boom) {
		t.Fatalf("expected count error, got %v", err)
	}
}

func TestDelete_Authorization(t *testing.T) {
	users := map[string]*domain.User{
		"m1": {ID: "m1", Role: domain.RoleMember},
		"m2": {ID: "m2", Role: domain.RoleMember},
		"a1": {ID: "a1", Role: domain.RoleAdmin},
	}
	ctx := context.Background()

	s := NewUserService(nil, &fakeUserRepo{users: users})
	if err := s.Delete(ctx, "", "m1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("no caller: %v", err)
	}
	if err := s.Delete(ctx, "ghost", "m1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("unknown caller: %v", err)
	}
	if err := s.Delete(ctx, "m2", "m1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member deleting other: %v", err)
	}

	fr := &fakeUserRepo{users: users}
	s = NewUserService(nil, fr)
	if err := s.Delete(ctx, "m1", "m1"); err != nil || fr.deletedID != "m1" {
		t.Fatalf("self delete: %v %q", err, fr.deletedID)
	}
	if err := s.Delete(ctx, "a1", "m2"); err != nil || fr.deletedID != "m2" {
		t.Fatalf("admin delete: %v %q", err, fr.deletedID)
	}
}

func TestDelete_MissingTargetAndRepoFailure(t *testing.T) {
	users := map[string]*domain.User{"a1": {ID: "a1", Role: domain.RoleAdmin}}
	ctx := context.Background()

	s := NewUserService(nil, &fakeUserRepo{users: users, deleteErr: repo.ErrNotFound})
	if err := s.Delete(ctx, "a1", "zz"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing target: %v", err)
	}

	boom := errors.New("locked")
	s = NewUserService(nil, &fakeUserRepo{getErr: boom})
	if err := s.Delete(ctx, "a1", "zz"); !errors.Is(err, boom) {
		t.Fatalf("caller lookup failure: %v", err)
	}
}

func TestValidationError_ConvertsItself(t *testing.T) {
	err := &ValidationError{Field: "username", Reason: "length out of range"}
	e := apierror.FromFailure(err)
	if e.Status() != http.StatusBadRequest || e.Message() != "username: length out of range" {
		t.Fatalf("got %d %q", e.Status(), e.Message())
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  ÅSA "); got != "åsa" {
		t.Fatalf("NormalizeUsername=%q", got)
	}
}
