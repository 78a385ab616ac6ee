package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"incapacity-claims/internal/blobstore"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/export"
)

// Upload is one document as received from the caller.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// AttachDocument stores the document and records it against the claim. An
// existing attachment for the same document type is replaced. Nothing is
// recorded when the upload fails.
func (s *ClaimService) AttachDocument(ctx context.Context, claimID int64, actor domain.Actor, docTypeID int64, up Upload) (*domain.Attachment, error) {
	if docTypeID <= 0 {
		return nil, fmt.Errorf("%w: doc_type_id must be positive", domain.ErrValidation)
	}
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !actor.IsReviewer() && c.ClaimantID != actor.ID {
		return nil, fmt.Errorf("%w: claim %d", domain.ErrOwnership, claimID)
	}
	if _, err := s.catalog.GetDocumentType(ctx, docTypeID); err != nil {
		return nil, err
	}
	ext, err := blobstore.ValidateDocument(up.ContentType, int64(len(up.Data)), s.uploadMaxBytes)
	if err != nil {
		return nil, err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()
	locator, err := s.blobs.Upload(uploadCtx, up.Data, up.ContentType, blobstore.ObjectName(ext))
	if err != nil {
		s.logger.Error("Document upload failed",
			zap.Int64("claim_id", claimID),
			zap.Int64("doc_type_id", docTypeID),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrUploadFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	att, err := s.claims.UpsertAttachment(ctx, &domain.Attachment{
		ClaimID:    claimID,
		DocTypeID:  docTypeID,
		StorageRef: locator,
		UploadedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}

	ev := domain.NewClaimEvent(domain.EventDocumentAdded, claimID, actor.ID)
	ev.ClaimantID = c.ClaimantID
	ev.Changes = map[string]any{
		"doc_type_id":  docTypeID,
		"storage_ref":  locator,
		"content_type": up.ContentType,
		"file_name":    up.Filename,
		"size":         len(up.Data),
	}
	s.emitter.Emit(ctx, ev)
	return att, nil
}

// ComplianceFor reports, per required document type, whether it is attached.
func (s *ClaimService) ComplianceFor(ctx context.Context, claimID int64) ([]domain.ComplianceEntry, error) {
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.complianceOf(ctx, c)
}

func (s *ClaimService) complianceOf(ctx context.Context, c *domain.Claim) ([]domain.ComplianceEntry, error) {
	required, err := s.requirements.RequiredDocTypes(ctx, c.ClaimTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requirements: %w", err)
	}
	attached, err := s.claims.AttachedDocTypes(ctx, c.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	return domain.ComputeCompliance(required, attached), nil
}

// complianceForAll computes compliance for a page of claims with one
// attachment query and one requirement lookup per claim type.
func (s *ClaimService) complianceForAll(ctx context.Context, claims []*domain.Claim) (map[int64][]domain.ComplianceEntry, error) {
	out := make(map[int64][]domain.ComplianceEntry, len(claims))
	if len(claims) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ClaimID)
	}
	attached, err := s.claims.AttachedDocTypesFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	required := map[int64][]int64{}
	for _, c := range claims {
		req, ok := required[c.ClaimTypeID]
		if !ok {
			req, err = s.requirements.RequiredDocTypes(ctx, c.ClaimTypeID)
			if err != nil {
				return nil, fmt.Errorf("failed to load requirements: %w", err)
			}
			required[c.ClaimTypeID] = req
		}
		out[c.ClaimID] = domain.ComputeCompliance(req, attached[c.ClaimID])
	}
	return out, nil
}

// ExportAll renders every claim matching filter as an .xlsx workbook.
func (s *ClaimService) ExportAll(ctx context.Context, filter domain.ClaimFilter) ([]byte, error) {
	var rows []export.ClaimRow
	page := domain.Pagination{Page: 1, Size: domain.MaxPageSize}
	for {
		claims, total, err := s.claims.ListClaims(ctx, filter, page)
		if err != nil {
			return nil, fmt.Errorf("failed to list claims: %w", err)
		}
		views, err := s.reviewerViews(ctx, claims)
		if err != nil {
			return nil, err
		}
		for _, v := range views {
			rows = append(rows, export.ClaimRow{
				ClaimID:           v.ClaimID,
				ClaimantName:      v.ClaimantName,
				ClaimTypeName:     v.ClaimTypeName,
				StatusName:        v.StatusName,
				StartDate:         v.StartDate,
				EndDate:           v.EndDate,
				Days:              v.Days,
				Salary:            v.Salary,
				SubmittedAt:       v.SubmittedAt,
				CaseNumber:        v.CaseNumber,
				FilingDate:        v.FilingDate,
				Paid:              v.Paid,
				DocumentsComplete: v.Compliant,
				RejectionMessage:  v.RejectionMessage,
			})
		}
		if len(claims) == 0 || page.Page*page.Size >= total {
			break
		}
		page.Page++
	}
	return export.ClaimsWorkbook(rows)
}
