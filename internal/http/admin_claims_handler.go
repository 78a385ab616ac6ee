package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"incapacity-claims/internal/domain"
)

// AdminList is the reviewer listing with optional filters.
func (h *ClaimsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	const op = "AdminListClaims"
	if _, ok := h.actor(w, r, op, domain.RoleAdmin); !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	page := domain.Pagination{
		Page: parseInt(r.URL.Query().Get("page"), 1),
		Size: parseInt(r.URL.Query().Get("size"), domain.DefaultPageSize),
	}
	resp, err := h.claims.ListAll(r.Context(), filter, page)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func parseFilter(r *http.Request) (domain.ClaimFilter, error) {
	q := r.URL.Query()
	var f domain.ClaimFilter
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		code, err := parseID("status", s)
		if err != nil {
			return f, err
		}
		f.Status = domain.ClaimStatus(code)
		if !f.Status.Valid() {
			return f, fmt.Errorf("%w: unknown status %s", domain.ErrValidation, s)
		}
	}
	var err error
	if f.ClaimTypeID, err = optionalID("claim_type_id", q.Get("claim_type_id")); err != nil {
		return f, err
	}
	if f.ClaimantID, err = optionalID("claimant_id", q.Get("claimant_id")); err != nil {
		return f, err
	}
	if s := q.Get("from"); s != "" {
		t, err := parseDate("from", s)
		if err != nil {
			return f, err
		}
		f.SubmittedFrom = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate("to", s)
		if err != nil {
			return f, err
		}
		// a bare date includes the whole day
		if len(strings.TrimSpace(s)) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.SubmittedTo = &t
	}
	return f, nil
}

// AdminExport streams the filtered listing as an .xlsx workbook.
func (h *ClaimsHandler) AdminExport(w http.ResponseWriter, r *http.Request) {
	const op = "AdminExportClaims"
	if _, ok := h.actor(w, r, op, domain.RoleAdmin); !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	data, err := h.claims.ExportAll(r.Context(), filter)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=claims-export.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ClaimsHandler) AdminDetail(w http.ResponseWriter, r *http.Request) {
	const op = "AdminGetClaim"
	if _, ok := h.actor(w, r, op, domain.RoleAdmin); !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	view, err := h.claims.GetDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *ClaimsHandler) AdminCompliance(w http.ResponseWriter, r *http.Request) {
	const op = "AdminCompliance"
	if _, ok := h.actor(w, r, op, domain.RoleAdmin); !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	entries, err := h.claims.ComplianceFor(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(newComplianceResult(id, entries)))
}

type reviewPayload struct {
	AdminClass       *string `json:"admin_class"`
	CaseNumber       *string `json:"case_number"`
	FilingDate       *string `json:"filing_date"`
	Paid             *bool   `json:"paid"`
	AdminStatusLabel *string `json:"admin_status_label"`
}

// AdminReview records the administrative fields and marks the claim REVIEWED.
func (h *ClaimsHandler) AdminReview(w http.ResponseWriter, r *http.Request) {
	const op = "AdminReviewClaim"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	var p reviewPayload
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, op, err)
		return
	}
	filing, err := parseOptionalDate("filing_date", p.FilingDate)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	done, err := h.claims.ReviewUpdate(r.Context(), id, a.ID, domain.AdminFields{
		AdminClass:       p.AdminClass,
		CaseNumber:       p.CaseNumber,
		FilingDate:       filing,
		Paid:             p.Paid,
		AdminStatusLabel: p.AdminStatusLabel,
	})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

func (h *ClaimsHandler) AdminMarkReviewed(w http.ResponseWriter, r *http.Request) {
	const op = "AdminMarkReviewed"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	done, err := h.claims.MarkReviewed(r.Context(), id, a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

type statusPayload struct {
	Status           int    `json:"status"`
	RejectionMessage string `json:"rejection_message"`
}

func (h *ClaimsHandler) AdminChangeStatus(w http.ResponseWriter, r *http.Request) {
	const op = "AdminChangeStatus"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	var p statusPayload
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, op, err)
		return
	}
	done, err := h.claims.ChangeStatus(r.Context(), id, domain.ClaimStatus(p.Status), a.ID, p.RejectionMessage)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

func (h *ClaimsHandler) AdminUpdateForm(w http.ResponseWriter, r *http.Request) {
	const op = "AdminUpdateForm"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	h.updateForm(w, r, op, a)
}

func (h *ClaimsHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	const op = "AdminDeleteClaim"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	id, ok := h.claimID(w, r, op)
	if !ok {
		return
	}
	done, err := h.claims.Delete(r.Context(), id, a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(successResult{Success: done}))
}

type bulkPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type bulkResult struct {
	Affected int64 `json:"affected"`
}

func (h *ClaimsHandler) AdminBulkStatus(w http.ResponseWriter, r *http.Request) {
	const op = "AdminBulkStatus"
	a, ok := h.actor(w, r, op, domain.RoleAdmin)
	if !ok {
		return
	}
	var p bulkPayload
	if err := readBodyJSON(r, maxJSONBody, &p); err != nil {
		h.fail(w, r, op, err)
		return
	}
	n, err := h.claims.BulkTransition(r.Context(), domain.ClaimStatus(p.From), domain.ClaimStatus(p.To), a.ID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(bulkResult{Affected: n}))
}
