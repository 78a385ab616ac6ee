package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux; every route is mounted
// under the API base path.
type Router struct {
	mux    *http.ServeMux
	base   string
	logger *zap.Logger
}

func NewRouter(basePath string, logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		base:   basePath,
		logger: logger,
	}
}

// Handle registers h for method and a path relative to the base path.
func (r *Router) Handle(method, path string, h http.HandlerFunc) {
	r.mux.HandleFunc(method+" "+r.base+path, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(sw, req)
	r.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", sw.status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RegisterClaimRoutes mounts the claimant endpoints.
func (r *Router) RegisterClaimRoutes(h *ClaimsHandler) {
	r.Handle(http.MethodPost, "/claims", h.Create)
	r.Handle(http.MethodGet, "/claims/mine", h.ListMine)
	r.Handle(http.MethodGet, "/claims/mine/{id}", h.GetMine)
	r.Handle(http.MethodPut, "/claims/mine/{id}", h.UpdateMine)
	r.Handle(http.MethodPost, "/claims/mine/{id}/resubmit", h.ResubmitMine)
	r.Handle(http.MethodPost, "/claims/{id}/documents", h.UploadDocument)
	r.Handle(http.MethodGet, "/claims/mine/{id}/compliance", h.ComplianceMine)
	r.Handle(http.MethodPost, "/claims/{id}/notify-reviewers", h.NotifyReviewers)
}

// RegisterAdminClaimRoutes mounts the reviewer endpoints.
func (r *Router) RegisterAdminClaimRoutes(h *ClaimsHandler) {
	r.Handle(http.MethodGet, "/admin/claims", h.AdminList)
	r.Handle(http.MethodGet, "/admin/claims/export", h.AdminExport)
	r.Handle(http.MethodPost, "/admin/claims/bulk-status", h.AdminBulkStatus)
	r.Handle(http.MethodGet, "/admin/claims/{id}", h.AdminDetail)
	r.Handle(http.MethodGet, "/admin/claims/{id}/compliance", h.AdminCompliance)
	r.Handle(http.MethodPut, "/admin/claims/{id}/review", h.AdminReview)
	r.Handle(http.MethodPost, "/admin/claims/{id}/mark-reviewed", h.AdminMarkReviewed)
	r.Handle(http.MethodPut, "/admin/claims/{id}/status", h.AdminChangeStatus)
	r.Handle(http.MethodPut, "/admin/claims/{id}/form", h.AdminUpdateForm)
	r.Handle(http.MethodDelete, "/admin/claims/{id}", h.AdminDelete)
}

// Prober reports document store health.
type Prober interface {
	Probe(ctx context.Context) bool
}

// RegisterHealthRoutes mounts /healthz at the server root. With a prober the
// response includes the document store state.
func (r *Router) RegisterHealthRoutes(p Prober) {
	r.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]any{"status": "ok"}
		if p != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 15*time.Second)
			defer cancel()
			body["storage"] = p.Probe(ctx)
		}
		writeJSON(w, http.StatusOK, Ok(body))
	})
}
