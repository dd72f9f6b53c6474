package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-route-errors/internal/apierror"
)

func newEngine(logBuf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		if logBuf != nil {
			logger := zerolog.New(logBuf)
			c.Set("logger", &logger)
		}
		c.Next()
	})
	return r
}

func do(r http.Handler, method, path string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return m
}

func Test_fail_UnmappedFailure_500_LogsCause(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)
	r.GET("/boom", func(c *gin.Context) {
		fail(c, errors.New("pq: relation \"users\" does not exist"))
	})

	w := do(r, http.MethodGet, "/boom", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	body := decode(t, w)
	if len(body) != 1 || body["error"] != "An unexpected error occurred" {
		t.Fatalf("unexpected body: %v", body)
	}
	if strings.Contains(w.Body.String(), "relation") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control=%q", w.Header().Get("Cache-Control"))
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, "relation") {
		t.Fatalf("expected error log with cause, got: %s", logs)
	}
}

func Test_Fail_ClientFault_NotLogged(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, apierror.NotFound())
	})

	w := do(r, http.MethodGet, "/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if decode(t, w)["error"] != "The resource was not found" {
		t.Fatalf("body=%s", w.Body.String())
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx must not be logged by fail: %s", buf.String())
	}
}

func Test_fail_RenderFault_FallsBackTo500(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)
	r.GET("/bad", func(c *gin.Context) {
		fail(c, apierror.ForStatus[[]int](http.StatusBadRequest).WithData([]int{1, 2}))
	})

	w := do(r, http.MethodGet, "/bad", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if decode(t, w)["error"] != apierror.FallbackMessage {
		t.Fatalf("body=%s", w.Body.String())
	}
	if !strings.Contains(buf.String(), "could not be rendered") {
		t.Fatalf("expected render fault log, got %s", buf.String())
	}
}

func Test_handle_SuccessAndNoContent(t *testing.T) {
	r := newEngine(nil)
	r.POST("/ok", handle(func(*gin.Context) (int, any, error) {
		return http.StatusCreated, gin.H{"ok": true}, nil
	}))
	r.DELETE("/gone", handle(func(*gin.Context) (int, any, error) {
		return http.StatusNoContent, nil, nil
	}))

	w := do(r, http.MethodPost, "/ok", "", nil)
	if w.Code != http.StatusCreated || decode(t, w)["ok"] != true {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodDelete, "/gone", "", nil)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}

func Test_handleInternal_AddsDetailOnlyForRawFailures(t *testing.T) {
	r := newEngine(nil)
	r.GET("/raw", handleInternal(func(*gin.Context) (int, any, error) {
		return 0, nil, errors.New("Too many foxes in the DB")
	}))
	r.GET("/typed", handleInternal(func(*gin.Context) (int, any, error) {
		return 0, nil, apierror.Conflict()
	}))

	w := do(r, http.MethodGet, "/raw", "", nil)
	body := decode(t, w)
	ie, isMap := body["internal_error"].(map[string]any)
	if w.Code != http.StatusInternalServerError || !isMap || ie["name"] != "Too many foxes in the DB" {
		t.Fatalf("raw: %d %v", w.Code, body)
	}
	if body["error"] != apierror.FallbackMessage {
		t.Fatalf("public message must stay generic: %v", body["error"])
	}

	w = do(r, http.MethodGet, "/typed", "", nil)
	body = decode(t, w)
	if _, has := body["internal_error"]; has || w.Code != http.StatusConflict {
		t.Fatalf("typed: %d %v", w.Code, body)
	}
}

func Test_badJSON(t *testing.T) {
	e := badJSON(errors.New("unexpected EOF"))
	var ae *apierror.Error[apierror.NoData]
	if !errors.As(e, &ae) || ae.Status() != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", e)
	}
	mbe := &http.MaxBytesError{Limit: 10}
	if got := badJSON(mbe); got != error(mbe) {
		t.Fatalf("MaxBytesError should pass through, got %v", got)
	}
	if s := bridge.FromFailure(mbe).Status(); s != http.StatusRequestEntityTooLarge {
		t.Fatalf("bridge status=%d", s)
	}
}
