package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hamed0406/onionwatch/internal/domain"
	"github.com/hamed0406/onionwatch/internal/repo/memory"
)

// ---- test helpers ----

var fixedNow = time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	eps := []domain.Endpoint{
		{Name: "Zulu", Address: "zulu.onion", Port: 80},
		{Name: "Alpha", Address: "alpha.onion", Port: 443},
		{Name: "Bravo", Address: "bravo.onion", Port: 8080},
		{Name: "Charlie", Address: "charlie.onion", Port: 80},
		{Name: "Delta", Address: "delta.onion", Port: 80},
	}
	s := memory.New(eps)
	at := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.Record(ctx, eps[0].Key(), domain.Online(42), at))
	must(s.Record(ctx, eps[1].Key(), domain.Offline("SOCKS5 connection failed: <Host unreachable>"), at))
	must(s.Record(ctx, eps[2].Key(), domain.Online(7), at))
	must(s.MarkChecking(ctx, eps[3].Key()))
	// Delta stays Unknown
	return s
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(zap.NewNop(), seededStore(t), opts)
	srv.now = func() time.Time { return fixedNow }
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

// ---- tests ----

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	for _, p := range []string{"/health", "/healthz"} {
		resp, body := get(t, ts.URL+p, nil)
		if resp.StatusCode != http.StatusOK || body != "OK" {
			t.Fatalf("%s: %d %q", p, resp.StatusCode, body)
		}
	}
}

func TestAPIStatus(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, body := get(t, ts.URL+"/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}

	var doc struct {
		Summary   domain.Summary `json:"summary"`
		Endpoints []struct {
			Endpoint domain.Endpoint `json:"endpoint"`
			Status   struct {
				Kind           string `json:"kind"`
				ResponseTimeMS int64  `json:"response_time_ms"`
				Error          string `json:"error"`
			} `json:"status"`
			LastCheck *time.Time `json:"last_check"`
		} `json:"endpoints"`
		GeneratedAt time.Time `json:"generated_at"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Summary{Online: 2, Offline: 1, Checking: 1, Unknown: 1}
	if doc.Summary != want {
		t.Fatalf("summary %+v want %+v", doc.Summary, want)
	}
	if len(doc.Endpoints) != 5 || doc.Endpoints[0].Endpoint.Name != "Zulu" {
		t.Fatalf("endpoints not in configuration order: %+v", doc.Endpoints)
	}
	if doc.Endpoints[0].Status.Kind != "Online" || doc.Endpoints[0].Status.ResponseTimeMS != 42 {
		t.Fatalf("first endpoint %+v", doc.Endpoints[0].Status)
	}
	if doc.Endpoints[4].LastCheck != nil {
		t.Fatalf("unknown endpoint should have null last_check")
	}
	if !doc.GeneratedAt.Equal(fixedNow) {
		t.Fatalf("generated_at %v", doc.GeneratedAt)
	}
}

func TestAPIEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	resp, body := get(t, ts.URL+"/api/status/alpha.onion/443", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"kind":"Offline"`) {
		t.Fatalf("found: %d %s", resp.StatusCode, body)
	}

	resp, _ = get(t, ts.URL+"/api/status/alpha.onion/444", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown: want 404 got %d", resp.StatusCode)
	}

	resp, _ = get(t, ts.URL+"/api/status/alpha.onion/http", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad port: want 400 got %d", resp.StatusCode)
	}
}

func TestAPIKeys(t *testing.T) {
	_, ts := newTestServer(t, Options{APIKeys: []string{"secret"}})

	if resp, _ := get(t, ts.URL+"/api/status", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no key: want 401 got %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/api/status", map[string]string{"X-API-Key": "secret"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("with key: want 200 got %d", resp.StatusCode)
	}
	// dashboard and health stay public
	if resp, _ := get(t, ts.URL+"/", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: want 200 got %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/health", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("health: want 200 got %d", resp.StatusCode)
	}
}

func TestDashboard_Render(t *testing.T) {
	_, ts := newTestServer(t, Options{Refresh: 15 * time.Second})
	resp, body := get(t, ts.URL+"/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type %q", ct)
	}

	for _, want := range []string{
		"42ms",
		"7ms",
		"2024-03-09 08:00:00 UTC",
		"Never",
		"Connecting...",
		"SOCKS5 connection failed: &lt;Host unreachable&gt;",
		"Auto-refresh: 15s",
		"Last updated: 2024-03-09 08:07:06 UTC",
		`data-address="alpha.onion"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	// Online (by name) then Checking, Unknown, Offline
	order := []string{"Bravo", "Zulu", "Charlie", "Delta", "Alpha"}
	last := -1
	for _, name := range order {
		i := strings.Index(body, `<td class="name-cell">`+name+`</td>`)
		if i < 0 || i < last {
			t.Fatalf("row %s out of order", name)
		}
		last = i
	}
}

func TestDashboard_NoEndpoints(t *testing.T) {
	srv := NewServer(zap.NewNop(), memory.New(nil), Options{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	_, body := get(t, ts.URL+"/", nil)
	if !strings.Contains(body, "No endpoints configured") {
		t.Fatalf("expected empty state, got %s", body)
	}
}

func TestStatic(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	for _, p := range []string{"/static/app.js", "/static/styles.css"} {
		if resp, body := get(t, ts.URL+p, nil); resp.StatusCode != http.StatusOK || body == "" {
			t.Fatalf("%s: %d", p, resp.StatusCode)
		}
	}
}

func TestStream_PushesDocuments(t *testing.T) {
	_, ts := newTestServer(t, Options{Refresh: 50 * time.Millisecond})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var doc statusDocument
		if err := conn.ReadJSON(&doc); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if doc.Summary.Online != 2 || len(doc.Endpoints) != 5 {
			t.Fatalf("message %d: %+v", i, doc.Summary)
		}
	}
}

func TestSortForDisplay_DoesNotMutateInput(t *testing.T) {
	in := []domain.EndpointRecord{
		{Endpoint: domain.Endpoint{Name: "b"}, Status: domain.Offline("x")},
		{Endpoint: domain.Endpoint{Name: "a"}, Status: domain.Online(1)},
	}
	out := sortForDisplay(in)
	if out[0].Endpoint.Name != "a" || in[0].Endpoint.Name != "b" {
		t.Fatalf("in=%v out=%v", in, out)
	}
}
