package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"incapacity-claims/internal/blobstore"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/service"
)

// ActorResolver identifies the caller of a request.
type ActorResolver interface {
	Resolve(req *http.Request) (domain.Actor, error)
}

// ClaimsHandler serves the claimant and reviewer claim endpoints.
type ClaimsHandler struct {
	claims         *service.ClaimService
	resolver       ActorResolver
	uploadMaxBytes int64
	logger         *zap.Logger
}

func NewClaimsHandler(claims *service.ClaimService, resolver ActorResolver, uploadMaxBytes int64, logger *zap.Logger) *ClaimsHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = blobstore.DefaultMaxUploadBytes
	}
	return &ClaimsHandler{
		claims:         claims,
		resolver:       resolver,
		uploadMaxBytes: uploadMaxBytes,
		logger:         logger,
	}
}

func (h *ClaimsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	} else {
		h.logger.Debug(op+" refused", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, Fail(msg))
}

// actor resolves the caller. With a role given, the caller must have it.
func (h *ClaimsHandler) actor(w http.ResponseWriter, r *http.Request, op string, role ...domain.Role) (domain.Actor, bool) {
	a, err := h.resolver.Resolve(r)
	if err != nil {
		h.fail(w, r, op, err)
		return domain.Actor{}, false
	}
	if len(role) > 0 && a.Role != role[0] {
		h.fail(w, r, op, fmt.Errorf("%w: %s role required", domain.ErrForbidden, role[0]))
		return domain.Actor{}, false
	}
	return a, true
}

func (h *ClaimsHandler) claimID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := parseID("claim id", r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return 0, false
	}
	return id, true
}

type successResult struct {
	Success bool `json:"success"`
}

// ---- claimant endpoints ----

type createPayload struct {
	ClaimTypeID int64           `json:"claim_type_id"`
	CauseID     int64           `json:"cause_id"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Days        int             `json:"days"`
	Salary      decimal.Decimal `json:"salary"`
	InsurerID   int64           `json:"insurer_id"`
	ServiceID   int64           `json:"service_id"`
	DiagnosisID int64           `json:"diagnosis_id"`
}

type createResult struct {
	ClaimID    int64              `json:"claim_id"`
	Status     domain.ClaimStatus `json:"status"`
	StatusName string             `json:"status_name"`
}

// Create registers a new claim for the calling employee.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "CreateClaim"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	var p createPayload
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, op, err)
		return
	}
	start, err := parseDate("start_date", p.StartDate)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	end, err := parseDate("end_date", p.EndDate)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	c, err := h.claims.Create(r.Context(), a.ID, service.CreateClaimRequest{
		ClaimTypeID: p.ClaimTypeID,
		CauseID:     p.CauseID,
		StartDate:   start,
		EndDate:     end,
		Days:        p.Days,
		Salary:      p.Salary,
		InsurerID:   p.InsurerID,
		ServiceID:   p.ServiceID,
		DiagnosisID: p.DiagnosisID,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(createResult{ClaimID: c.ClaimID, Status: c.Status, StatusName: c.Status.String()}))
}

// ListMine pages through the caller's own claims.
func (h *ClaimsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	const op = "ListMyClaims"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	page := domain.Pagination{
		Page: parseInt(r.URL.Query().Get("page"), 1),
		Size: parseInt(r.URL.Query().Get("size"), domain.DefaultPageSize),
	}
	resp, err := h.claims.ListOwnedBy(r.Context(), a.ID, page)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *ClaimsHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	const op = "GetMyClaim"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	view, err := h.claims.GetOwned(r.Context(), id, a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

type formPayload struct {
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	Days        *int             `json:"days"`
	Salary      *decimal.Decimal `json:"salary"`
	InsurerID   *int64           `json:"insurer_id"`
	ServiceID   *int64           `json:"service_id"`
	DiagnosisID *int64           `json:"diagnosis_id"`
}

func (p formPayload) toUpdate() (domain.FormUpdate, error) {
	start, err := parseOptionalDate("start_date", p.StartDate)
	if err != nil {
		return domain.FormUpdate{}, err
	}
	end, err := parseOptionalDate("end_date", p.EndDate)
	if err != nil {
		return domain.FormUpdate{}, err
	}
	return domain.FormUpdate{
		StartDate:   start,
		EndDate:     end,
		Days:        p.Days,
		Salary:      p.Salary,
		InsurerID:   p.InsurerID,
		ServiceID:   p.ServiceID,
		DiagnosisID: p.DiagnosisID,
	}, nil
}

func (h *ClaimsHandler) updateForm(w http.ResponseWriter, r *http.Request, op string, a domain.Actor) {
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	var p formPayload
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, op, err)
		return
	}
	upd, err := p.toUpdate()
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	done, err := h.claims.UpdateForm(r.Context(), id, a, upd)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

// UpdateMine corrects an own rejected claim and resubmits it.
func (h *ClaimsHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	const op = "UpdateMyClaim"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	h.updateForm(w, r, op, a)
}

func (h *ClaimsHandler) ResubmitMine(w http.ResponseWriter, r *http.Request) {
	const op = "ResubmitClaim"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	done, err := h.claims.Resubmit(r.Context(), id, a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

// UploadDocument takes a multipart form with a "file" part. The document type
// comes from the doc_type_id query parameter.
func (h *ClaimsHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	const op = "UploadDocument"
	a, ok := h.actor(w, r, op)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	docTypeID, err := parseID("doc_type_id", r.URL.Query().Get("doc_type_id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	up, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	att, err := h.claims.AttachDocument(r.Context(), id, a, docTypeID, up)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(att))
}

func (h *ClaimsHandler) readUpload(w http.ResponseWriter, r *http.Request) (service.Upload, error) {
	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrValidation, h.uploadMaxBytes)
		}
		return service.Upload{}, fmt.Errorf("%w: invalid multipart form: %v", domain.ErrValidation, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, fmt.Errorf("%w: file part is required", domain.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.uploadMaxBytes+1))
	if err != nil {
		return service.Upload{}, fmt.Errorf("%w: failed to read file: %v", domain.ErrValidation, err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return service.Upload{Data: data, ContentType: contentType, Filename: header.Filename}, nil
}

type complianceResult struct {
	ClaimID    int64                    `json:"claim_id"`
	Compliance []domain.ComplianceEntry `json:"compliance"`
	Compliant  bool                     `json:"compliant"`
}

// ComplianceMine reports the document checklist of an owned claim.
func (h *ClaimsHandler) ComplianceMine(w http.ResponseWriter, r *http.Request) {
	const op = "ComplianceMine"
	a, ok := h.actor(w, r, op, domain.RoleEmployee)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	view, err := h.claims.GetOwned(r.Context(), id, a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(newComplianceResult(id, view.Compliance)))
}

func newComplianceResult(claimID int64, entries []domain.ComplianceEntry) complianceResult {
	return complianceResult{
		ClaimID:    claimID,
		Compliance: entries,
		Compliant:  domain.IsCompliant(entries),
	}
}

func (h *ClaimsHandler) NotifyReviewers(w http.ResponseWriter, r *http.Request) {
	const op = "NotifyReviewers"
	a, ok := h.actor(w, r, op)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	if err := h.claims.NotifyReviewers(r.Context(), id, a); err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, Ok(successResult{Success: true}))
}
