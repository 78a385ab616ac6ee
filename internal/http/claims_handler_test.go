package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"incapacity-claims/internal/auth"
	"incapacity-claims/internal/blobstore"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/events"
	"incapacity-claims/internal/repository"
	"incapacity-claims/internal/service"
	"incapacity-claims/internal/store"
)

const basePath = "/incapacidades/api/v1"

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type apiFixture struct {
	router   *Router
	blobs    *blobstore.MemoryBlobStore
	sessions *auth.SessionAuthenticator
	emitter  *events.LocalEmitter
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()

	claims := repository.NewMemoryClaimsRepo()
	ref := repository.NewMemoryReferenceRepo()
	ref.PutClaimType(domain.CatalogItem{ID: 1, Name: "General illness"})
	ref.PutDocumentType(domain.CatalogItem{ID: 1, Name: "Medical certificate"})
	ref.PutDocumentType(domain.CatalogItem{ID: 2, Name: "Clinical history"})
	require.NoError(t, ref.ReplaceRequirements(context.Background(), 1, []int64{1, 2}))
	ref.PutUser(domain.User{UserID: 100, FullName: "Eva Employee", Email: "eva@example.com", Role: domain.RoleEmployee, Active: true})
	ref.PutUser(domain.User{UserID: 1, FullName: "Ana Admin", Email: "ana@example.com", Role: domain.RoleAdmin, Active: true})

	blobs := blobstore.NewMemoryBlobStore()
	emitter := events.NewLocalEmitter(logger)
	precondition := blobstore.NewPrecondition(blobs, time.Second, logger)
	svc := service.NewClaimService(service.ClaimServiceDeps{
		Claims:         claims,
		Requirements:   ref,
		Catalog:        ref,
		Users:          ref,
		Blobs:          blobs,
		Storage:        precondition,
		Emitter:        emitter,
		UploadMaxBytes: 1024,
	}, logger)

	sessions := auth.NewSessionAuthenticator(store.NewMemoryKV(), time.Hour)
	resolver := auth.NewResolver(sessions, true)

	router := NewRouter(basePath, logger)
	h := NewClaimsHandler(svc, resolver, 1024, logger)
	router.RegisterClaimRoutes(h)
	router.RegisterAdminClaimRoutes(h)
	router.RegisterHealthRoutes(precondition)

	return &apiFixture{router: router, blobs: blobs, sessions: sessions, emitter: emitter}
}

func employee(id int64) http.Header {
	h := http.Header{}
	h.Set("X-User-Id", fmt.Sprint(id))
	h.Set("X-User-Role", "employee")
	return h
}

func admin() http.Header {
	h := http.Header{}
	h.Set("X-User-Id", "1")
	h.Set("X-User-Role", "admin")
	return h
}

func (f *apiFixture) do(t *testing.T, method, path string, headers http.Header, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, basePath+path, reader)
	for k, v := range headers {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func createBody() map[string]any {
	return map[string]any{
		"claim_type_id": 1,
		"cause_id":      2,
		"start_date":    "2024-03-01",
		"end_date":      "2024-03-05",
		"days":          5,
		"salary":        "1500.00",
		"insurer_id":    3,
		"service_id":    4,
		"diagnosis_id":  5,
	}
}

func (f *apiFixture) createClaim(t *testing.T, owner int64) int64 {
	t.Helper()
	w, env := f.do(t, http.MethodPost, "/claims", employee(owner), createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		ClaimID int64 `json:"claim_id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	return res.ClaimID
}

func multipartUpload(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="doc.pdf"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *apiFixture) upload(t *testing.T, claimID, docTypeID int64, headers http.Header, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartUpload(t, contentType, data)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("%s/claims/%d/documents?doc_type_id=%d", basePath, claimID, docTypeID), body)
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateAndListMine(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)
	assert.Equal(t, int64(1), id)

	w, env := f.do(t, http.MethodGet, "/claims/mine?page=1&size=10", employee(100), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResultSuccess, env.Code)

	var list service.ListOwnedResponse
	require.NoError(t, json.Unmarshal(env.Result, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "PENDING", list.Items[0].StatusName)
	assert.Equal(t, 1, list.Pagination.Count)
	assert.NotContains(t, string(env.Result), "case_number")
}

func TestErrorStatusMapping(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	tests := []struct {
		name    string
		method  string
		path    string
		headers http.Header
		body    any
		status  int
	}{
		{"missing credential", http.MethodGet, "/claims/mine", nil, nil, http.StatusUnauthorized},
		{"employee on admin route", http.MethodGet, "/admin/claims", employee(100), nil, http.StatusForbidden},
		{"admin on claimant route", http.MethodPost, "/claims", admin(), createBody(), http.StatusForbidden},
		{"bad date", http.MethodPost, "/claims", employee(100), map[string]any{"start_date": "yesterday"}, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/claims", employee(100), "{", http.StatusBadRequest},
		{"other claimant", http.MethodGet, fmt.Sprintf("/claims/mine/%d", id), employee(101), nil, http.StatusForbidden},
		{"unknown claim", http.MethodGet, "/admin/claims/999", admin(), nil, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/admin/claims/abc", admin(), nil, http.StatusBadRequest},
		{"reviewer sets pending", http.MethodPut, fmt.Sprintf("/admin/claims/%d/status", id), admin(), map[string]any{"status": 11}, http.StatusConflict},
		{"rejection without message", http.MethodPut, fmt.Sprintf("/admin/claims/%d/status", id), admin(), map[string]any{"status": 50}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := f.do(t, tt.method, tt.path, tt.headers, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, ResultError, env.Code)
			assert.Equal(t, "error", env.Type)
		})
	}
}

func TestCreate_StorageDownIsPreconditionFailed(t *testing.T) {
	f := newAPIFixture(t)
	f.blobs.SetFailUploads(true)

	w, _ := f.do(t, http.MethodPost, "/claims", employee(100), createBody())
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w, env := f.do(t, http.MethodGet, "/admin/claims", admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list service.ListAllResponse
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Empty(t, list.Items)
}

func TestRejectAndResubmitFlow(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	w, _ := f.do(t, http.MethodPut, fmt.Sprintf("/admin/claims/%d/status", id), admin(),
		map[string]any{"status": 50, "rejection_message": "missing diagnosis"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, env := f.do(t, http.MethodGet, fmt.Sprintf("/claims/mine/%d", id), employee(100), nil)
	var view service.ClaimView
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, domain.StatusRejected, view.Status)
	assert.Equal(t, "missing diagnosis", view.RejectionMessage)

	w, _ = f.do(t, http.MethodPost, fmt.Sprintf("/claims/mine/%d/resubmit", id), employee(101), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, fmt.Sprintf("/claims/mine/%d/resubmit", id), employee(100), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, env = f.do(t, http.MethodGet, fmt.Sprintf("/claims/mine/%d", id), employee(100), nil)
	view = service.ClaimView{}
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, domain.StatusPending, view.Status)
	assert.Empty(t, view.RejectionMessage)

	w, _ = f.do(t, http.MethodPost, fmt.Sprintf("/claims/mine/%d/resubmit", id), employee(100), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestClaimantFormUpdateResubmits(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)
	path := fmt.Sprintf("/claims/mine/%d", id)

	w, _ := f.do(t, http.MethodPut, path, employee(100), map[string]any{"diagnosis_id": 9})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(t, http.MethodPut, fmt.Sprintf("/admin/claims/%d/status", id), admin(),
		map[string]any{"status": 50, "rejection_message": "wrong diagnosis"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodPut, path, employee(100), map[string]any{"diagnosis_id": 9, "end_date": "2024-03-06", "days": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, env := f.do(t, http.MethodGet, path, employee(100), nil)
	var view service.ClaimView
	require.NoError(t, json.Unmarshal(env.Result, &view))
	assert.Equal(t, domain.StatusPending, view.Status)
	assert.Equal(t, int64(9), view.DiagnosisID)
	assert.Equal(t, 6, view.Days)
}

func TestReviewAndDetail(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	w, _ := f.do(t, http.MethodPut, fmt.Sprintf("/admin/claims/%d/review", id), admin(),
		map[string]any{"case_number": "RAD-9", "filing_date": "2024-03-10", "paid": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := f.do(t, http.MethodGet, fmt.Sprintf("/admin/claims/%d", id), admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail service.ReviewerClaimView
	require.NoError(t, json.Unmarshal(env.Result, &detail))
	assert.Equal(t, domain.StatusReviewed, detail.Status)
	require.NotNil(t, detail.CaseNumber)
	assert.Equal(t, "RAD-9", *detail.CaseNumber)
	assert.Equal(t, "Eva Employee", detail.ClaimantName)
	assert.Equal(t, "General illness", detail.ClaimTypeName)

	w, _ = f.do(t, http.MethodPost, fmt.Sprintf("/admin/claims/%d/mark-reviewed", id), admin(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadAndCompliance(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	w := f.upload(t, id, 1, employee(100), "application/pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := f.do(t, http.MethodGet, fmt.Sprintf("/claims/mine/%d/compliance", id), employee(100), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res complianceResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, []domain.ComplianceEntry{
		{DocTypeID: 1, Required: true, Uploaded: true, Complete: true},
		{DocTypeID: 2, Required: true, Uploaded: false, Complete: false},
	}, res.Compliance)
	assert.False(t, res.Compliant)

	w, _ = f.do(t, http.MethodGet, fmt.Sprintf("/claims/mine/%d/compliance", id), employee(101), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the claimant route is not a reviewer route
	w, _ = f.do(t, http.MethodGet, fmt.Sprintf("/claims/mine/%d/compliance", id), admin(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = f.do(t, http.MethodGet, fmt.Sprintf("/admin/claims/%d/compliance", id), admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = complianceResult{}
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, id, res.ClaimID)
	assert.Len(t, res.Compliance, 2)

	w, _ = f.do(t, http.MethodGet, fmt.Sprintf("/admin/claims/%d/compliance", id), employee(100), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodGet, "/admin/claims/999/compliance", admin(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRefusals(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	w := f.upload(t, id, 1, employee(100), "text/html", []byte("<html></html>"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.upload(t, id, 1, employee(100), "application/pdf", bytes.Repeat([]byte("x"), 2048))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.upload(t, id, 1, employee(101), "application/pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.blobs.SetFailUploads(true)
	w = f.upload(t, id, 1, admin(), "application/pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestBulkStatusAndExport(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		f.createClaim(t, 100)
	}

	w, env := f.do(t, http.MethodPost, "/admin/claims/bulk-status", admin(), map[string]any{"from": 11, "to": 12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res bulkResult
	require.NoError(t, json.Unmarshal(env.Result, &res))
	assert.Equal(t, int64(3), res.Affected)

	w, _ = f.do(t, http.MethodPost, "/admin/claims/bulk-status", admin(), map[string]any{"from": 12, "to": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = f.do(t, http.MethodGet, "/admin/claims?status=12&from=2000-01-01", admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list service.ListAllResponse
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Len(t, list.Items, 3)
	assert.Len(t, list.AvailableStatuses, 4)

	w, _ = f.do(t, http.MethodGet, "/admin/claims?status=13", admin(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, "/admin/claims/export", admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestDeleteAndNotifyReviewers(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createClaim(t, 100)

	w, _ := f.do(t, http.MethodPost, fmt.Sprintf("/claims/%d/notify-reviewers", id), employee(101), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = f.do(t, http.MethodPost, fmt.Sprintf("/claims/%d/notify-reviewers", id), employee(100), nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/admin/claims/%d", id), admin(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = f.do(t, http.MethodGet, fmt.Sprintf("/admin/claims/%d", id), admin(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBearerSession(t *testing.T) {
	f := newAPIFixture(t)
	token, err := f.sessions.Issue(context.Background(), domain.Actor{ID: 100, Role: domain.RoleEmployee})
	require.NoError(t, err)

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	w, _ := f.do(t, http.MethodGet, "/claims/mine", h, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	h.Set("Authorization", "Bearer not-a-session")
	w, _ = f.do(t, http.MethodGet, "/claims/mine", h, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":true`)
}
