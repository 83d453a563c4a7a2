package filter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/metrics"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestHTTPFilter(t *testing.T, withModel bool) *HTTPFilter {
	t.Helper()
	logger := zaptest.NewLogger(t)
	recorder := metrics.NewRecorder()

	var clf core.Classifier
	if withModel {
		clf = newTestClassifier(t, logger)
	}
	service := core.NewDetectionService(clf, nil, nil, recorder, logger, core.DetectionConfig{Threshold: 0.5})
	return NewHTTPFilter(service, logger, testServerConfig(), recorder)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHTTPDetect(t *testing.T) {
	f := newTestHTTPFilter(t, true)

	w := doJSON(t, f.Handler(), http.MethodPost, "/detect", `{
		"email_content": "URGENT! Verify your account now: http://bit.ly/paypal-fix",
		"email_subject": "Account suspended",
		"from_address": "security@paypal-verification.com",
		"to_address": "victim@example.com"
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp DetectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || !resp.Result.IsPhishing {
		t.Errorf("expected phishing verdict, got %+v", resp)
	}
	if resp.Result.Features.SuspiciousURLs != 1 || resp.Result.Features.URLCount != 1 {
		t.Errorf("unexpected features %+v", resp.Result.Features)
	}
	sum := resp.Result.PhishingProbability + resp.Result.LegitimateProbability
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("probabilities must sum to 1, got %v", sum)
	}

	// Feature keys keep the schema order in the raw body
	body := w.Body.String()
	if strings.Index(body, "suspicious_keywords_count") > strings.Index(body, "spam_score") {
		t.Errorf("features out of order: %s", body)
	}
}

func TestHTTPDetectErrors(t *testing.T) {
	tests := []struct {
		name      string
		withModel bool
		body      string
		want      int
		wantError string
	}{
		{"missing content", true, `{"email_subject": "hi"}`, http.StatusBadRequest, "Email content is required"},
		{"invalid json", true, `{`, http.StatusBadRequest, "Invalid JSON body"},
		{"no model", false, `{"email_content": "hello"}`, http.StatusServiceUnavailable, "Model not loaded"},
		{"unparseable raw message", true, `{"raw_message": "no header here\r\n\r\nbody"}`, http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestHTTPFilter(t, tt.withModel)
			w := doJSON(t, f.Handler(), http.MethodPost, "/detect", tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			resp := decodeBody(t, w)
			if tt.wantError != "" && resp["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, resp["error"])
			}
		})
	}
}

func TestHTTPDetectRawMessage(t *testing.T) {
	f := newTestHTTPFilter(t, true)

	payload, _ := json.Marshal(DetectRequest{RawMessage: legitimateRaw})
	w := doJSON(t, f.Handler(), http.MethodPost, "/detect", string(payload))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp DetectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result.IsPhishing {
		t.Errorf("expected legitimate verdict, got %+v", resp.Result)
	}
	if resp.Result.Features.SubjectLength != len("Lunch") {
		t.Errorf("subject not taken from the raw message: %+v", resp.Result.Features)
	}
}

func TestHTTPFeaturesWithoutModel(t *testing.T) {
	f := newTestHTTPFilter(t, false)

	w := doJSON(t, f.Handler(), http.MethodPost, "/features", `{"email_content": "Click http://192.168.0.1/login now!"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	feats, ok := resp["features"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing features in %v", resp)
	}
	if feats["ip_in_url"] != float64(1) {
		t.Errorf("expected ip_in_url=1, got %v", feats["ip_in_url"])
	}

	w = doJSON(t, f.Handler(), http.MethodPost, "/features", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty content, got %d", w.Code)
	}
}

func TestHTTPHealth(t *testing.T) {
	for _, withModel := range []bool{true, false} {
		f := newTestHTTPFilter(t, withModel)
		w := doJSON(t, f.Handler(), http.MethodGet, "/health", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		resp := decodeBody(t, w)
		if resp["status"] != "ok" || resp["model_loaded"] != withModel {
			t.Errorf("unexpected health response %v", resp)
		}
	}
}

func TestHTTPMetrics(t *testing.T) {
	f := newTestHTTPFilter(t, true)
	doJSON(t, f.Handler(), http.MethodPost, "/detect", `{"email_content": "See you at noon."}`)

	w := doJSON(t, f.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `phishing_detector_emails_scanned_total{model="test-linear",verdict="legitimate"} 1`) {
		t.Errorf("metrics output missing scan counter:\n%s", w.Body.String())
	}
}
