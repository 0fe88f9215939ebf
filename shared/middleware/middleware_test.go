package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})
	r.GET("/missing", func(c *gin.Context) {
		RespondWithError(c, http.StatusNotFound, "user not found")
	})
	r.GET("/invalid", func(c *gin.Context) {
		RespondWithValidationError(c, "name is required", []ValidationError{
			{Field: "name", Message: "name is required", Type: "required"},
		})
	})
	return r
}

func TestLoggingMiddlewareGeneratesRequestID(t *testing.T) {
	r := newTestRouter(LoggingMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected a generated request id header")
	}
	if w.Body.String() != id {
		t.Errorf("handler saw request id %q, header has %q", w.Body.String(), id)
	}
}

func TestLoggingMiddlewareReusesCallerRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	r := newTestRouter(LoggingMiddleware())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "  abc-123  ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected trimmed caller id, got %q", got)
	}
	if !strings.Contains(buf.String(), `"request_id":"abc-123"`) {
		t.Errorf("access log missing request id: %s", buf.String())
	}
}

func TestNormalizeRequestIDTruncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	if got := normalizeRequestID(long); len(got) != maxRequestIDLength {
		t.Errorf("expected %d chars, got %d", maxRequestIDLength, len(got))
	}
}

func TestRespondWithError(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if body["error"] != "user not found" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRespondWithValidationError(t *testing.T) {
	r := newTestRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invalid", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body BadRequestErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if body.Error != "name is required" || len(body.Details) != 1 || body.Details[0].Field != "name" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
	}{
		{name: "wildcard allows any origin", origins: []string{"*"}, origin: "http://app.local", wantHeader: "*"},
		{name: "listed origin is echoed", origins: []string{"http://app.local"}, origin: "http://app.local", wantHeader: "http://app.local"},
		{name: "unlisted origin gets no header", origins: []string{"http://app.local"}, origin: "http://evil.local", wantHeader: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(CORSMiddleware(tt.origins))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("expected Access-Control-Allow-Origin %q, got %q", tt.wantHeader, got)
			}
		})
	}
}
