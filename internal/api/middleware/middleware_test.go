package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newObservedEngine() (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))

	owned := r.Group("/api/v1", Owner())
	owned.GET("/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })
	owned.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/api/data", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, logs
}

func TestLogger_EmitsRequestAndOwnerIDs(t *testing.T) {
	r, logs := newObservedEngine()

	req := httptest.NewRequest("GET", "/api/v1/tasks?userId=u1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", e.Level)
	}
	fields := e.ContextMap()
	if fields["request_id"] != "req-42" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["owner_id"] != "u1" {
		t.Errorf("owner_id = %v", fields["owner_id"])
	}
	if fields["route"] != "/api/v1/tasks" {
		t.Errorf("route = %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status = %v", fields["status"])
	}
}

func TestLogger_OwnerFromHeaderWithoutOwnerMiddleware(t *testing.T) {
	r, logs := newObservedEngine()

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("X-User-ID", "  u2 ")
	r.ServeHTTP(httptest.NewRecorder(), req)

	fields := logs.All()[0].ContextMap()
	if fields["owner_id"] != "u2" {
		t.Errorf("owner_id = %v", fields["owner_id"])
	}
	if fields["request_id"] == "" {
		t.Error("expected generated request_id")
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	r, logs := newObservedEngine()

	cases := []struct {
		path  string
		level zapcore.Level
	}{
		{"/api/v1/boom?userId=u1", zapcore.ErrorLevel},
		{"/api/v1/tasks", zapcore.WarnLevel},
		{"/health", zapcore.DebugLevel},
	}
	for _, tc := range cases {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tc.path, nil))
	}

	entries := logs.All()
	if len(entries) != len(cases) {
		t.Fatalf("expected %d entries, got %d", len(cases), len(entries))
	}
	for i, tc := range cases {
		if entries[i].Level != tc.level {
			t.Errorf("%s: expected %v, got %v", tc.path, tc.level, entries[i].Level)
		}
	}
}

func TestRequestID_ReplacesUnsafeValue(t *testing.T) {
	r, _ := newObservedEngine()

	for _, rid := range []string{"bad id<script>", strings.Repeat("a", 65), "含中文"} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", rid)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		if got == rid || len(got) != 36 {
			t.Errorf("%q: expected generated uuid, got %q", rid, got)
		}
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "trace_1.a-b")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "trace_1.a-b" {
		t.Errorf("expected passthrough, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/x", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "default-src 'none'") {
		t.Errorf("unexpected CSP: %q", w.Header().Get("Content-Security-Policy"))
	}
}

func TestBodyLimit(t *testing.T) {
	called := 0
	r := gin.New()
	r.Use(BodyLimit(16))
	r.PUT("/x", func(c *gin.Context) {
		called++
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})
	big := `{"a":"` + strings.Repeat("x", 64) + `"}`

	t.Run("declared length rejected up front", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("PUT", "/x", strings.NewReader(big)))
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
		var body struct {
			Code int `json:"code"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Code != 10005 {
			t.Errorf("expected code 10005, got %d", body.Code)
		}
		if called != 0 {
			t.Error("handler should not run")
		}
	})

	t.Run("unknown length cut while reading", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/x", strings.NewReader(big))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", w.Code)
		}
	})

	t.Run("small body passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("PUT", "/x", strings.NewReader(`{"a":1}`)))
		if w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	newEngine := func(origins ...string) *gin.Engine {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	preflight := func(origin string) *http.Request {
		req := httptest.NewRequest("OPTIONS", "/x", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "PUT")
		return req
	}

	r := newEngine("http://localhost:5173/")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight("http://localhost:5173"))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("unexpected allow origin: %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials should not be allowed")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, preflight("http://evil.example"))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unknown origin, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID") {
		t.Error("expected X-Request-ID to be exposed")
	}

	w = httptest.NewRecorder()
	newEngine("*").ServeHTTP(w, preflight("http://anything.example"))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("wildcard: code=%d origin=%q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}
