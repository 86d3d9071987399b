//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errorgate/internal/api"
	"errorgate/internal/boundary"
	"errorgate/internal/config"
	"errorgate/internal/health"
	"errorgate/internal/report"
	"errorgate/internal/testutil"
	"errorgate/pkg/cloudevent"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"
)

const reportKey = "e2e-signing-key"

// receiver is a webhook endpoint that keeps every verified error report.
type receiver struct {
	mu     sync.Mutex
	events []cloudevent.CloudEvent
	bad    int
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	event, err := cloudevent.Decode(r, reportKey)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err != nil {
		rc.bad++
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rc.events = append(rc.events, *event)
	w.WriteHeader(http.StatusAccepted)
}

func (rc *receiver) snapshot() ([]cloudevent.CloudEvent, int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]cloudevent.CloudEvent(nil), rc.events...), rc.bad
}

// getTestURL returns the base URL for e2e tests.
// If E2E_API_URL is set, tests run against that instance and report
// assertions are skipped.
func getTestURL(t *testing.T) (string, *receiver, func()) {
	if url := os.Getenv("E2E_API_URL"); url != "" {
		t.Logf("Using external API: %s", url)
		return url, nil, func() {}
	}
	return createTestServer(t)
}

func createTestServer(tb testing.TB) (string, *receiver, func()) {
	catalog, err := config.LoadCatalog("../configs/errors.yaml")
	if err != nil {
		tb.Fatalf("Failed to load catalog: %v", err)
	}

	rc := &receiver{}
	webhook := httptest.NewServer(rc)

	reporter := report.New(report.Config{
		URL:        webhook.URL,
		SigningKey: reportKey,
		BufferSize: 1000,
		Workers:    4,
	}, nil)

	errs := boundary.New(boundary.Config{
		Lookup:   catalog,
		Metadata: catalog,
		Reporter: reporter,
		Logger:   testutil.DiscardLogger(),
	})

	router := api.NewRouter(api.RouterConfig{
		HealthChecker: health.NewChecker(
			health.Check{Name: "catalog", Checker: catalog},
			health.Check{Name: "reporter", Checker: reporter, Optional: true},
		),
		Errors: errs,
		APIKey: "e2e-api-key",
	})

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		// Drain reporter before closing the webhook so pending reports land
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reporter.Close(ctx)
		webhook.Close()
	}

	return server.URL, rc, cleanup
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	ErrorType string `json:"errorType"`
}

func get(t *testing.T, url string, header http.Header) (*http.Response, errorBody) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var body errorBody
	json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestAPI_Readyz(t *testing.T) {
	baseURL, _, cleanup := getTestURL(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/readyz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result health.Response
	json.NewDecoder(resp.Body).Decode(&result)

	if result.Status != health.StatusHealthy {
		t.Errorf("Expected healthy status, got %s", result.Status)
	}
}

func TestAPI_Livez(t *testing.T) {
	baseURL, _, cleanup := getTestURL(t)
	defer cleanup()

	resp, err := http.Get(baseURL + "/livez")
	if err != nil {
		t.Fatalf("Liveness check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAPI_ErrorCatalog(t *testing.T) {
	baseURL, _, cleanup := getTestURL(t)
	defer cleanup()

	tests := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/test/errors/not-found", http.StatusNotFound, "ER0004", "The requested resource was not found."},
		{"/test/errors/conflict", http.StatusConflict, "ER0009", "The resource is in conflict with its current state."},
		{"/test/errors/too-many-requests", http.StatusTooManyRequests, "ER0029", "Too many requests, retry later."},
		{"/test/errors/external-error", http.StatusBadGateway, "ER5002", "An upstream service failed."},
		{"/test/hello-params?param.integer=1", http.StatusBadRequest, "ER0001", "param.string must not be blank"},
		{"/test/panic", http.StatusInternalServerError, "ER9999", "An unexpected error occurred."},
		{"/missing", http.StatusNotFound, "ER0004", `Not found -> HTTP GET "/missing"`},
	}

	for _, tt := range tests {
		resp, body := get(t, baseURL+tt.path, nil)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
		if body.Code != tt.code || body.Message != tt.message {
			t.Errorf("%s: unexpected body %+v", tt.path, body)
		}
		if body.Component != "errorgate" || body.ErrorType != "TECHNICAL" {
			t.Errorf("%s: unexpected component or type %+v", tt.path, body)
		}
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	baseURL, _, cleanup := getTestURL(t)
	defer cleanup()

	resp, err := http.Post(baseURL+"/test/hello", "application/json", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}

	var body errorBody
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "ER9999" {
		t.Errorf("Expected default code for an unconfigured status, got %q", body.Code)
	}
}

func TestAPI_Secure(t *testing.T) {
	baseURL, _, cleanup := getTestURL(t)
	defer cleanup()

	resp, body := get(t, baseURL+"/test/secure", nil)
	if resp.StatusCode != http.StatusUnauthorized || body.Code != "ER0002" {
		t.Errorf("Expected 401/ER0002, got %d %+v", resp.StatusCode, body)
	}
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Error("Expected bearer challenge")
	}

	resp, _ = get(t, baseURL+"/test/secure", http.Header{"Authorization": {"Bearer e2e-api-key"}})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAPI_ServerErrorsAreReported(t *testing.T) {
	baseURL, rc, cleanup := getTestURL(t)
	defer cleanup()
	if rc == nil {
		t.Skip("report receiver is only available in-process")
	}

	get(t, baseURL+"/test/errors/not-found", nil)
	get(t, baseURL+"/test/panic", nil)
	get(t, baseURL+"/test/errors/external-error", nil)

	testutil.MustWaitFor(t, func() bool {
		events, _ := rc.snapshot()
		return len(events) >= 2
	}, testutil.WithTimeout(5*time.Second), testutil.WithInterval(20*time.Millisecond))

	events, bad := rc.snapshot()
	if bad != 0 {
		t.Errorf("Expected every report to carry a valid signature, %d did not", bad)
	}
	if len(events) != 2 {
		t.Fatalf("Expected only the two server-side failures to be reported, got %d", len(events))
	}

	paths := map[any]bool{}
	for _, event := range events {
		if event.Type != report.EventType {
			t.Errorf("Unexpected event type %q", event.Type)
		}
		paths[event.Data["path"]] = true
	}
	if !paths["/test/panic"] || !paths["/test/errors/external-error"] {
		t.Errorf("Unexpected reported paths %v", paths)
	}
}
