package server

import (
	"context"
	"encoding/json"
	"go/format"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/danmuck/amlctl/internal/archive"
	"github.com/danmuck/amlctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

const referenceMessage = `A"ML=1;lt=+54.76397;lg=-0.18305;rd=50;top=20130717141935;lc=90;pm=W;si=123456789012345;ei=1234567890123456;mcc=234;mnc=30;ml=128`

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.ID == "" {
		opts.ID = "amld-test"
	}
	s := New(opts)
	s.RegisterRoutes()
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestParseAcceptsReferenceMessage(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodPost, "/v1/parse", referenceMessage+"\n")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	body := decode[ParseResult](t, rr)
	if body.ID != "" {
		t.Fatalf("expected no archive id without archive, got %q", body.ID)
	}
	if body.Message.PositionMethod == nil || *body.Message.PositionMethod != aml.WiFiSignal {
		t.Fatalf("unexpected position method: %v", body.Message.PositionMethod)
	}
	if body.Message.Length == nil || *body.Message.Length != 128 {
		t.Fatalf("unexpected length: %v", body.Message.Length)
	}
	log.Info().Str("summary", body.Summary).Msg("server/parse: reference accepted")
}

func TestParseFailuresReturn422(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{})

	cases := []struct {
		name      string
		body      string
		kind      string
		reason    string
		attribute string
	}{
		{
			name:      "length mismatch",
			body:      strings.Replace(referenceMessage, "ml=128", "ml=10", 1),
			kind:      "parse",
			reason:    "length_mismatch",
			attribute: aml.AttrLength,
		},
		{
			name:      "bad positioning method",
			body:      strings.Replace(referenceMessage, "pm=W", "pm=Z", 1),
			kind:      "parse",
			reason:    "unknown_positioning_method",
			attribute: aml.AttrPositioningMethod,
		},
		{
			name:      "unsupported version",
			body:      strings.Replace(referenceMessage, `A"ML=1`, `A"ML=2`, 1),
			kind:      "validation",
			reason:    "unsupported_version",
			attribute: aml.AttrVersion,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/v1/parse", tc.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d body=%s", rr.Code, rr.Body.String())
			}
			got := decode[ParseFailure](t, rr)
			if got.Kind != tc.kind || got.Reason != tc.reason || got.Attribute != tc.attribute {
				t.Fatalf("unexpected failure body: %+v", got)
			}
			if !strings.HasPrefix(got.Error, "aml: ") {
				t.Fatalf("unexpected error text: %q", got.Error)
			}
		})
	}
}

func TestParseWithoutValidation(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{Parser: aml.NewParser(aml.WithValidator(nil))})

	rr := do(t, s, http.MethodPost, "/v1/parse", strings.Replace(referenceMessage, `A"ML=1`, `A"ML=2`, 1))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestParseRejectsOversizedBody(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodPost, "/v1/parse", strings.Repeat("x", MaxBodyBytes+1))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestArchiveRoutes(t *testing.T) {
	testlog.Start(t)
	store, err := archive.Open(filepath.Join(t.TempDir(), "amld.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	s := newTestServer(t, Options{Archive: store})

	rr := do(t, s, http.MethodPost, "/v1/parse", referenceMessage)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	parsed := decode[ParseResult](t, rr)
	if parsed.ID == "" {
		t.Fatalf("expected archive id")
	}

	// rejected messages are not archived
	do(t, s, http.MethodPost, "/v1/parse", "ml=3")

	rr = do(t, s, http.MethodGet, "/v1/messages/"+parsed.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rec := decode[archive.Record](t, rr)
	if rec.Raw != referenceMessage {
		t.Fatalf("unexpected raw: %q", rec.Raw)
	}

	rr = do(t, s, http.MethodGet, "/v1/messages?limit=10", "")
	list := decode[struct {
		Messages []archive.Record `json:"messages"`
	}](t, rr)
	if len(list.Messages) != 1 || list.Messages[0].ID != parsed.ID {
		t.Fatalf("unexpected list: %+v", list.Messages)
	}

	if rr := do(t, s, http.MethodGet, "/v1/messages/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/v1/messages?limit=abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestArchiveRoutesAbsentWithoutStore(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{})
	if rr := do(t, s, http.MethodGet, "/v1/messages", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics disabled, got %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{Metrics: true})

	rr := do(t, s, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	health := decode[map[string]any](t, rr)
	if health["status"] != "ok" || health["service"] != "amld-test" {
		t.Fatalf("unexpected health body: %#v", health)
	}

	do(t, s, http.MethodPost, "/v1/parse", referenceMessage)
	rr = do(t, s, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "amlctl_parse_total") {
		t.Fatalf("expected parse counter in metrics output")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := New(Options{ID: "amld-test"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serveListener(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for range 50 {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestAuthTokenGuardsV1(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, Options{AuthToken: "secret"})

	if rr := do(t, s, http.MethodPost, "/v1/parse", referenceMessage); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rr.Code)
	}
	if rr := do(t, s, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected /health open, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/parse", strings.NewReader(referenceMessage))
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 with token, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSourcesAreFormatted(t *testing.T) {
	for _, name := range []string{"server.go", "routes.go"} {
		src, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		formatted, err := format.Source(src)
		if err != nil {
			t.Fatalf("format %s: %v", name, err)
		}
		if string(formatted) != string(src) {
			t.Fatalf("%s is not gofmt formatted", name)
		}
	}
}
