package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouter_RegistersEveryRouteGroup(t *testing.T) {
	r := NewRouter(basePath, zap.NewNop())
	h := NewClaimsHandler(nil, nil, 1024, zap.NewNop())
	require.NotPanics(t, func() {
		r.RegisterClaimRoutes(h)
		r.RegisterAdminClaimRoutes(h)
		r.RegisterHealthRoutes(nil)
	})

	tests := []struct {
		method  string
		path    string
		pattern string
	}{
		{http.MethodPost, "/claims", "POST " + basePath + "/claims"},
		{http.MethodGet, "/claims/mine", "GET " + basePath + "/claims/mine"},
		{http.MethodGet, "/claims/mine/7", "GET " + basePath + "/claims/mine/{id}"},
		{http.MethodGet, "/claims/mine/7/compliance", "GET " + basePath + "/claims/mine/{id}/compliance"},
		{http.MethodGet, "/claims/mine/compliance", "GET " + basePath + "/claims/mine/{id}"},
		{http.MethodPut, "/claims/mine/7", "PUT " + basePath + "/claims/mine/{id}"},
		{http.MethodPost, "/claims/mine/7/resubmit", "POST " + basePath + "/claims/mine/{id}/resubmit"},
		{http.MethodPost, "/claims/7/documents", "POST " + basePath + "/claims/{id}/documents"},
		{http.MethodPost, "/claims/7/notify-reviewers", "POST " + basePath + "/claims/{id}/notify-reviewers"},
		{http.MethodGet, "/admin/claims", "GET " + basePath + "/admin/claims"},
		{http.MethodGet, "/admin/claims/export", "GET " + basePath + "/admin/claims/export"},
		{http.MethodGet, "/admin/claims/7", "GET " + basePath + "/admin/claims/{id}"},
		{http.MethodGet, "/admin/claims/7/compliance", "GET " + basePath + "/admin/claims/{id}/compliance"},
		{http.MethodPut, "/admin/claims/7/review", "PUT " + basePath + "/admin/claims/{id}/review"},
		{http.MethodPost, "/admin/claims/7/mark-reviewed", "POST " + basePath + "/admin/claims/{id}/mark-reviewed"},
		{http.MethodPut, "/admin/claims/7/status", "PUT " + basePath + "/admin/claims/{id}/status"},
		{http.MethodPut, "/admin/claims/7/form", "PUT " + basePath + "/admin/claims/{id}/form"},
		{http.MethodDelete, "/admin/claims/7", "DELETE " + basePath + "/admin/claims/{id}"},
		{http.MethodPost, "/admin/claims/bulk-status", "POST " + basePath + "/admin/claims/bulk-status"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, basePath+tt.path, nil)
			_, pattern := r.mux.Handler(req)
			assert.Equal(t, tt.pattern, pattern)
		})
	}

	_, pattern := r.mux.Handler(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "GET /healthz", pattern)
}
