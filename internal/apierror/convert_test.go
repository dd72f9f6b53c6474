package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var errNoRows = errors.New("sql: no rows in result set")

type quotaError struct{ limit int }

func (q *quotaError) Error() string { return fmt.Sprintf("quota %d exceeded", q.limit) }

type selfMapping struct{}

func (selfMapping) Error() string { return "self mapping" }
func (selfMapping) RouteError() *Error[NoData] {
	return Forbidden().WithMessage("nope")
}

func TestFromFailure_UnmappedIs500(t *testing.T) {
	dbErr := errors.New("pq: connection refused to 10.0.0.3")
	e := FromFailure(dbErr)
	status, body := render(t, e)
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d", status)
	}
	want := map[string]any{"error": "An unexpected error occurred"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(e, dbErr) {
		t.Fatal("cause must be kept for the boundary")
	}
}

func TestFromFailure_NilIs500(t *testing.T) {
	if s := FromFailure(nil).Status(); s != http.StatusInternalServerError {
		t.Fatalf("status=%d", s)
	}
}

func TestFromFailure_ExistingRouteErrorPassesThrough(t *testing.T) {
	orig := NotFound().WithMessage("gone")
	got := FromFailure(fmt.Errorf("lookup: %w", orig))
	if got != orig {
		t.Fatal("expected the wrapped route error itself")
	}
}

func TestFromFailure_Converter(t *testing.T) {
	e := FromFailure(fmt.Errorf("wrap: %w", selfMapping{}))
	if e.Status() != http.StatusForbidden || e.Message() != "nope" {
		t.Fatalf("got %d %q", e.Status(), e.Message())
	}
	var sm selfMapping
	if !errors.As(e, &sm) {
		t.Fatal("converter failure should be kept as cause")
	}
}

func TestBridge_MapIsAndMapAs(t *testing.T) {
	b := NewBridge(
		MapIs(errNoRows, http.StatusNotFound, ""),
		MapAs(func(q *quotaError) *Error[NoData] {
			return TooManyRequests().WithMessage(q.Error())
		}),
	)

	nf := b.FromFailure(fmt.Errorf("get user: %w", errNoRows))
	if nf.Status() != http.StatusNotFound || nf.Message() != "The resource was not found" {
		t.Fatalf("MapIs: %d %q", nf.Status(), nf.Message())
	}

	q := b.FromFailure(fmt.Errorf("post: %w", &quotaError{limit: 5}))
	if q.Status() != http.StatusTooManyRequests || q.Message() != "quota 5 exceeded" {
		t.Fatalf("MapAs: %d %q", q.Status(), q.Message())
	}

	other := b.FromFailure(errors.New("boom"))
	if other.Status() != http.StatusInternalServerError {
		t.Fatalf("fallback: %d", other.Status())
	}
}

func TestBridge_MapIsCustomMessage(t *testing.T) {
	b := NewBridge(MapIs(errNoRows, http.StatusNotFound, "user not found"))
	if m := b.FromFailure(errNoRows).Message(); m != "user not found" {
		t.Fatalf("message=%q", m)
	}
}

func TestBridge_FirstMatchWins(t *testing.T) {
	b := NewBridge(
		MapIs(errNoRows, http.StatusNotFound, "first"),
		MapIs(errNoRows, http.StatusGone, "second"),
	)
	if e := b.FromFailure(errNoRows); e.Message() != "first" {
		t.Fatalf("message=%q", e.Message())
	}
}

func TestBridge_TotalOnPanicAndNil(t *testing.T) {
	b := NewBridge(
		func(error) *Error[NoData] { return nil },
		func(error) *Error[NoData] { panic("mapping bug") },
	)
	cause := errors.New("x")
	e := b.FromFailure(cause)
	if e.Status() != http.StatusInternalServerError {
		t.Fatalf("status=%d", e.Status())
	}
	if !errors.Is(e, cause) {
		t.Fatal("cause must be kept after a panicking mapping")
	}

	var nilBridge *Bridge
	if s := nilBridge.FromFailure(cause).Status(); s != http.StatusInternalServerError {
		t.Fatalf("nil bridge status=%d", s)
	}
}

func TestNewBridge_CopiesMappings(t *testing.T) {
	ms := []Mapping{MapIs(errNoRows, http.StatusNotFound, "")}
	b := NewBridge(ms...)
	ms[0] = MapIs(errNoRows, http.StatusGone, "")
	if s := b.FromFailure(errNoRows).Status(); s != http.StatusNotFound {
		t.Fatalf("bridge changed after construction: %d", s)
	}
}

func TestResolve(t *testing.T) {
	typed := ForStatus[userData](http.StatusConflict).WithData(userData{Username: "alice"})
	if r := Resolve(fmt.Errorf("create: %w", typed)); r != Renderer(typed) {
		t.Fatal("typed route error should resolve to itself")
	}

	r := Resolve(errors.New("disk full"))
	if r.Status() != http.StatusInternalServerError {
		t.Fatalf("status=%d", r.Status())
	}
	if r := Resolve(nil); r.Status() != http.StatusInternalServerError {
		t.Fatalf("nil status=%d", r.Status())
	}
}
