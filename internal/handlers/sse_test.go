package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"sales-dashboard/internal/ui/templates"
)

// sseRequest builds a datastar GET request carrying signals in the query string.
func sseRequest(path, signals string) *http.Request {
	if signals != "" {
		path += "?datastar=" + url.QueryEscape(signals)
	}
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func checkStreamHeaders(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event:") || !strings.Contains(body, "data:") {
		t.Error("response should contain SSE event and data lines")
	}
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestDashboardSignals_Request(t *testing.T) {
	s := dashboardSignals{
		Filters:     map[string][]string{"state": {"MAHARASHTRA"}},
		ViewFilters: map[string][]string{"ordersByDay": {"Monday"}},
	}

	req := s.request()

	if got := req.Filters["state"]; len(got) != 1 || got[0] != "MAHARASHTRA" {
		t.Errorf("state filter = %v", got)
	}
	if got := req.ViewFilters["ordersByDay"]; len(got) != 1 || got[0] != "Monday" {
		t.Errorf("view filter = %v", got)
	}
}

func TestSSEHandlers_HandleMetrics(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name    string
		signals string
		want    string
	}{
		{
			name: "no signals",
			want: `States Covered</span><span class="metric-value">2</span>`,
		},
		{
			name:    "state filter",
			signals: `{"filters":{"state":["MAHARASHTRA"]}}`,
			want:    `States Covered</span><span class="metric-value">1</span>`,
		},
		{
			name:    "all sentinel",
			signals: `{"filters":{"state":["All"]}}`,
			want:    `States Covered</span><span class="metric-value">2</span>`,
		},
		{
			name:    "no matching rows",
			signals: `{"filters":{"state":["GOA"]}}`,
			want:    `Promotion Usage (%)</span><span class="metric-value">0.00%</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleMetrics(w, sseRequest("/sse/metrics", tt.signals))

			checkStreamHeaders(t, w)
			body := w.Body.String()
			if !strings.Contains(body, `id="`+templates.MetricsID+`"`) {
				t.Error("response should patch the metrics element")
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("response should contain %q", tt.want)
			}
		})
	}
}

func TestSSEHandlers_InvalidSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"metrics", handlers.HandleMetrics},
		{"view", handlers.HandleView},
		{"options", handlers.HandleOptions},
		{"refresh all", handlers.HandleRefreshAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, sseRequest("/sse/x", "{not json"))

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got content-type %q", ct)
			}
			if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %+v", env.Error)
			}
		})
	}
}

func TestSSEHandlers_HandleView(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	t.Run("narrowed view", func(t *testing.T) {
		req := sseRequest("/sse/views/ordersByDay", `{"viewFilters":{"ordersByDay":["Monday"]}}`)
		req.SetPathValue("view", "ordersByDay")
		w := httptest.NewRecorder()

		handlers.HandleView(w, req)

		checkStreamHeaders(t, w)
		body := w.Body.String()
		for _, want := range []string{
			`id="` + templates.ViewContentID("ordersByDay") + `"`,
			"<table",
			"<td>Monday</td>",
			templates.AggregatesSignal,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("response should contain %q", want)
			}
		}
		if strings.Contains(body, "<td>Saturday</td>") {
			t.Error("narrowed view should not contain Saturday")
		}
	})

	t.Run("unknown view", func(t *testing.T) {
		req := sseRequest("/sse/views/nope", "")
		req.SetPathValue("view", "nope")
		w := httptest.NewRecorder()

		handlers.HandleView(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestSSEHandlers_HandleOptions(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testLogger())

	w := httptest.NewRecorder()
	handlers.HandleOptions(w, sseRequest("/sse/options", `{"filters":{"fulfilment":["Amazon"]},"viewFilters":{"revenueByStyle":["JNE3371"]}}`))

	checkStreamHeaders(t, w)
	body := w.Body.String()
	for _, view := range analytics.Views() {
		if !strings.Contains(body, `id="`+templates.ViewFilterID(view.Name)+`"`) {
			t.Errorf("response should patch the filter of view %s", view.Name)
		}
	}

	styles := patchedElement(t, body, templates.ViewFilterID("revenueByStyle"))
	if !strings.Contains(styles, `<option value="JNE3371" selected>`) {
		t.Errorf("style filter should keep the current selection, got %s", styles)
	}
	if strings.Contains(styles, "SET389") {
		t.Error("options should only cover filtered rows")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", `{"filters":{"b2b":["false"]}}`))

	checkStreamHeaders(t, w)
	body := w.Body.String()

	if !strings.Contains(body, `id="`+templates.MetricsID+`"`) {
		t.Error("response should patch the metric tiles")
	}
	for _, view := range analytics.Views() {
		if !strings.Contains(body, `id="`+templates.ViewContentID(view.Name)+`"`) {
			t.Errorf("response should patch view %s", view.Name)
		}
		if !strings.Contains(body, `id="`+templates.ViewFilterID(view.Name)+`"`) {
			t.Errorf("response should patch the filter of view %s", view.Name)
		}
	}
	if !strings.Contains(body, templates.AggregatesSignal) {
		t.Errorf("response should contain %q signal", templates.AggregatesSignal)
	}
	if strings.Contains(body, `"options"`) || strings.Contains(body, `{"aggregates"`) {
		t.Error("only the client-local aggregates signal should be patched")
	}
	if strings.Contains(body, "<td>Amazon</td>") {
		t.Error("b2b=false should exclude the Amazon order")
	}
}

func TestSSEHandlers_HandleRefreshAll_NarrowsViewFilters(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", `{"filters":{"state":["KARNATAKA"]}}`))

	checkStreamHeaders(t, w)
	body := w.Body.String()

	styles := patchedElement(t, body, templates.ViewFilterID("revenueByStyle"))
	if !strings.Contains(styles, `<option value="JNE3781">`) {
		t.Errorf("style filter should list the KARNATAKA style, got %s", styles)
	}
	for _, other := range []string{"SET389", "JNE3371"} {
		if strings.Contains(styles, other) {
			t.Errorf("style filter should drop %s, which is only sold outside KARNATAKA", other)
		}
	}

	states := patchedElement(t, body, templates.ViewFilterID("avgRevenueByState"))
	if strings.Contains(states, "MAHARASHTRA") {
		t.Error("state view filter should only offer the selected state")
	}
}

// patchedElement returns the patched form with the given id from an SSE body.
func patchedElement(t *testing.T, body, id string) string {
	t.Helper()
	start := strings.Index(body, `id="`+id+`"`)
	if start < 0 {
		t.Fatalf("element %s was not patched", id)
	}
	end := strings.Index(body[start:], "</form>")
	if end < 0 {
		t.Fatalf("element %s is not closed", id)
	}
	return body[start : start+end]
}

func TestSSEHandlers_ConcurrentRequests(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	done := make(chan int, 20)
	for i := 0; i < 20; i++ {
		go func() {
			w := httptest.NewRecorder()
			handlers.HandleRefreshAll(w, sseRequest("/sse/refresh-all", `{"filters":{"state":["KARNATAKA"]}}`))
			done <- w.Code
		}()
	}

	for i := 0; i < 20; i++ {
		if code := <-done; code != http.StatusOK {
			t.Errorf("expected status 200, got %d", code)
		}
	}
}
