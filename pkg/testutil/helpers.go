package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medflow/medflow-supply/pkg/httputil"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// NewHTTPRequest builds a request with an optional JSON body.
func NewHTTPRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// WithPrincipal attaches an authenticated caller and its tenant to the
// request, bypassing token validation.
func WithPrincipal(req *http.Request, p *httputil.Principal) *http.Request {
	ctx := httputil.WithPrincipal(req.Context(), p)
	ctx = tenant.WithTenantID(ctx, p.TenantID)
	return req.WithContext(ctx)
}

// ExecuteRequest serves req and returns the recorder.
func ExecuteRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ParseJSONBody decodes the response envelope's data into target.
func ParseJSONBody(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v\n%s", err, rr.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		t.Fatalf("failed to decode data: %v\n%s", err, envelope.Data)
	}
}

// TenantContext returns a context carrying TestTenantID.
func TenantContext() context.Context {
	return tenant.WithTenantID(context.Background(), TestTenantID)
}

// ContextWithTimeout returns a tenant context cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(TenantContext(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// PtrFloat returns a pointer to f.
func PtrFloat(f float64) *float64 { return &f }

// PtrInt returns a pointer to i.
func PtrInt(i int) *int { return &i }

// PtrString returns a pointer to s.
func PtrString(s string) *string { return &s }
