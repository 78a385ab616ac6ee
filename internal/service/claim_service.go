package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"incapacity-claims/internal/blobstore"
	"incapacity-claims/internal/domain"
	"incapacity-claims/internal/events"
	"incapacity-claims/internal/repository"
)

// StorageCheck gates claim creation on a healthy document store.
type StorageCheck interface {
	Check(ctx context.Context) error
}

// ClaimServiceDeps bundles the collaborators of ClaimService.
type ClaimServiceDeps struct {
	Claims       repository.ClaimsRepository
	Requirements repository.RequirementsRepository
	Catalog      repository.CatalogRepository
	Users        repository.UsersRepository
	Blobs        blobstore.BlobStore
	Storage      StorageCheck
	Emitter      events.Emitter

	UploadMaxBytes int64
	UploadTimeout  time.Duration
	Now            func() time.Time
}

// ClaimService owns the claim lifecycle: creation, reviewer decisions,
// resubmission, documents and compliance.
type ClaimService struct {
	claims       repository.ClaimsRepository
	requirements repository.RequirementsRepository
	catalog      repository.CatalogRepository
	users        repository.UsersRepository
	blobs        blobstore.BlobStore
	storage      StorageCheck
	emitter      events.Emitter

	uploadMaxBytes int64
	uploadTimeout  time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func NewClaimService(deps ClaimServiceDeps, logger *zap.Logger) *ClaimService {
	s := &ClaimService{
		claims:         deps.Claims,
		requirements:   deps.Requirements,
		catalog:        deps.Catalog,
		users:          deps.Users,
		blobs:          deps.Blobs,
		storage:        deps.Storage,
		emitter:        deps.Emitter,
		uploadMaxBytes: deps.UploadMaxBytes,
		uploadTimeout:  deps.UploadTimeout,
		now:            deps.Now,
		logger:         logger,
	}
	if s.uploadMaxBytes <= 0 {
		s.uploadMaxBytes = blobstore.DefaultMaxUploadBytes
	}
	if s.uploadTimeout <= 0 {
		s.uploadTimeout = 60 * time.Second
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.emitter == nil {
		s.emitter = events.NewLocalEmitter(logger)
	}
	return s
}

// CreateClaimRequest is the single creation contract.
type CreateClaimRequest struct {
	ClaimTypeID int64           `json:"claim_type_id"`
	CauseID     int64           `json:"cause_id"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Days        int             `json:"days"`
	Salary      decimal.Decimal `json:"salary"`
	InsurerID   int64           `json:"insurer_id"`
	ServiceID   int64           `json:"service_id"`
	DiagnosisID int64           `json:"diagnosis_id"`
}

func (r CreateClaimRequest) validate() error {
	ids := []struct {
		name string
		v    int64
	}{
		{"claim_type_id", r.ClaimTypeID},
		{"cause_id", r.CauseID},
		{"insurer_id", r.InsurerID},
		{"service_id", r.ServiceID},
		{"diagnosis_id", r.DiagnosisID},
	}
	for _, id := range ids {
		if id.v <= 0 {
			return fmt.Errorf("%w: %s must be positive", domain.ErrValidation, id.name)
		}
	}
	if !r.Salary.IsPositive() {
		return fmt.Errorf("%w: salary must be positive", domain.ErrValidation)
	}
	return validatePeriod(r.StartDate, r.EndDate, r.Days)
}

// validatePeriod requires end after start and a day count equal to the inclusive span.
func validatePeriod(start, end time.Time, days int) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_date must be after start_date", domain.ErrValidation)
	}
	if want := domain.InclusiveDays(start, end); days != want {
		return fmt.Errorf("%w: days is %d, period spans %d days", domain.ErrValidation, days, want)
	}
	return nil
}

// Create validates the request, checks the document store and persists a
// PENDING claim owned by claimantID.
func (s *ClaimService) Create(ctx context.Context, claimantID int64, req CreateClaimRequest) (*domain.Claim, error) {
	if claimantID <= 0 {
		return nil, fmt.Errorf("%w: claimant is required", domain.ErrValidation)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetClaimType(ctx, req.ClaimTypeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown claim type %d", domain.ErrValidation, req.ClaimTypeID)
		}
		return nil, fmt.Errorf("failed to resolve claim type: %w", err)
	}

	if s.storage != nil {
		if err := s.storage.Check(ctx); err != nil {
			s.logger.Warn("Claim creation refused, document store unavailable",
				zap.Int64("claimant_id", claimantID),
				zap.Error(err),
			)
			return nil, err
		}
	}

	c := &domain.Claim{
		ClaimantID:  claimantID,
		ClaimTypeID: req.ClaimTypeID,
		CauseID:     req.CauseID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Days:        req.Days,
		Salary:      req.Salary,
		InsurerID:   req.InsurerID,
		ServiceID:   req.ServiceID,
		DiagnosisID: req.DiagnosisID,
		Status:      domain.StatusPending,
		SubmittedAt: s.now(),
	}
	id, err := s.claims.CreateClaim(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}
	c.ClaimID = id

	ev := domain.NewClaimEvent(domain.EventCreated, id, claimantID)
	ev.ClaimantID = claimantID
	ev.NewStatus = domain.StatusPending
	s.emitter.Emit(ctx, ev)

	s.logger.Info("Claim created", zap.Int64("claim_id", id), zap.Int64("claimant_id", claimantID))
	return c, nil
}

// Get returns the stored claim.
func (s *ClaimService) Get(ctx context.Context, claimID int64) (*domain.Claim, error) {
	return s.claims.GetClaim(ctx, claimID)
}

// ClaimView is what a claimant sees: no administrative fields.
type ClaimView struct {
	ClaimID          int64                    `json:"claim_id"`
	ClaimTypeID      int64                    `json:"claim_type_id"`
	CauseID          int64                    `json:"cause_id"`
	StartDate        time.Time                `json:"start_date"`
	EndDate          time.Time                `json:"end_date"`
	Days             int                      `json:"days"`
	Salary           decimal.Decimal          `json:"salary"`
	InsurerID        int64                    `json:"insurer_id"`
	ServiceID        int64                    `json:"service_id"`
	DiagnosisID      int64                    `json:"diagnosis_id"`
	Status           domain.ClaimStatus       `json:"status"`
	StatusName       string                   `json:"status_name"`
	SubmittedAt      time.Time                `json:"submitted_at"`
	RejectionMessage string                   `json:"rejection_message,omitempty"`
	Compliance       []domain.ComplianceEntry `json:"compliance"`
	Compliant        bool                     `json:"compliant"`
}

// ReviewerClaimView adds administrative fields and display names.
type ReviewerClaimView struct {
	ClaimView
	ClaimantID       int64               `json:"claimant_id"`
	ClaimantName     string              `json:"claimant_name"`
	ClaimTypeName    string              `json:"claim_type_name"`
	ReviewerID       *int64              `json:"reviewer_id,omitempty"`
	CaseNumber       *string             `json:"case_number,omitempty"`
	FilingDate       *time.Time          `json:"filing_date,omitempty"`
	Paid             *bool               `json:"paid,omitempty"`
	AdminStatusLabel *string             `json:"admin_status_label,omitempty"`
	AdminClass       *string             `json:"admin_class,omitempty"`
	Attachments      []domain.Attachment `json:"attachments,omitempty"`
}

// StatusOption is one entry of the reviewer status picker.
type StatusOption struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// ListOwnedResponse is a page of the claimant's own claims.
type ListOwnedResponse struct {
	Items      []ClaimView       `json:"items"`
	Pagination domain.Pagination `json:"pagination"`
}

// ListAllResponse is a page of the reviewer listing.
type ListAllResponse struct {
	Items             []ReviewerClaimView `json:"items"`
	Pagination        domain.Pagination   `json:"pagination"`
	AvailableStatuses []StatusOption      `json:"available_statuses"`
}

func newClaimView(c *domain.Claim, compliance []domain.ComplianceEntry) ClaimView {
	return ClaimView{
		ClaimID:          c.ClaimID,
		ClaimTypeID:      c.ClaimTypeID,
		CauseID:          c.CauseID,
		StartDate:        c.StartDate,
		EndDate:          c.EndDate,
		Days:             c.Days,
		Salary:           c.Salary,
		InsurerID:        c.InsurerID,
		ServiceID:        c.ServiceID,
		DiagnosisID:      c.DiagnosisID,
		Status:           c.Status,
		StatusName:       c.Status.String(),
		SubmittedAt:      c.SubmittedAt,
		RejectionMessage: c.RejectionMessage,
		Compliance:       compliance,
		Compliant:        domain.IsCompliant(compliance),
	}
}

func newReviewerView(c *domain.Claim, compliance []domain.ComplianceEntry) ReviewerClaimView {
	return ReviewerClaimView{
		ClaimView:        newClaimView(c, compliance),
		ClaimantID:       c.ClaimantID,
		ReviewerID:       c.ReviewerID,
		CaseNumber:       c.CaseNumber,
		FilingDate:       c.FilingDate,
		Paid:             c.Paid,
		AdminStatusLabel: c.AdminStatusLabel,
		AdminClass:       c.AdminClass,
	}
}

// GetOwned returns the claimant view of a claim the caller owns.
func (s *ClaimService) GetOwned(ctx context.Context, claimID, claimantID int64) (*ClaimView, error) {
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.ClaimantID != claimantID {
		return nil, fmt.Errorf("%w: claim %d", domain.ErrOwnership, claimID)
	}
	compliance, err := s.complianceOf(ctx, c)
	if err != nil {
		return nil, err
	}
	v := newClaimView(c, compliance)
	return &v, nil
}

// GetDetail returns the reviewer view with names and attachments.
func (s *ClaimService) GetDetail(ctx context.Context, claimID int64) (*ReviewerClaimView, error) {
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	compliance, err := s.complianceOf(ctx, c)
	if err != nil {
		return nil, err
	}
	attachments, err := s.claims.ListAttachments(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	names := newNameResolver(s)
	if err := names.loadUsers(ctx, []*domain.Claim{c}); err != nil {
		return nil, err
	}
	v := newReviewerView(c, compliance)
	v.ClaimantName = names.user(c.ClaimantID)
	v.ClaimTypeName = names.claimType(ctx, c.ClaimTypeID)
	v.Attachments = attachments
	return &v, nil
}

// ListOwnedBy pages through the claimant's own claims.
func (s *ClaimService) ListOwnedBy(ctx context.Context, claimantID int64, page domain.Pagination) (*ListOwnedResponse, error) {
	page = page.Normalize()
	claims, total, err := s.claims.ListClaims(ctx, domain.ClaimFilter{ClaimantID: claimantID}, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	compliance, err := s.complianceForAll(ctx, claims)
	if err != nil {
		return nil, err
	}
	items := make([]ClaimView, 0, len(claims))
	for _, c := range claims {
		items = append(items, newClaimView(c, compliance[c.ClaimID]))
	}
	page.Count = total
	return &ListOwnedResponse{Items: items, Pagination: page}, nil
}

// ListAll is the reviewer listing.
func (s *ClaimService) ListAll(ctx context.Context, filter domain.ClaimFilter, page domain.Pagination) (*ListAllResponse, error) {
	page = page.Normalize()
	claims, total, err := s.claims.ListClaims(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	items, err := s.reviewerViews(ctx, claims)
	if err != nil {
		return nil, err
	}
	page.Count = total
	return &ListAllResponse{
		Items:             items,
		Pagination:        page,
		AvailableStatuses: s.availableStatuses(ctx),
	}, nil
}

func (s *ClaimService) reviewerViews(ctx context.Context, claims []*domain.Claim) ([]ReviewerClaimView, error) {
	compliance, err := s.complianceForAll(ctx, claims)
	if err != nil {
		return nil, err
	}
	names := newNameResolver(s)
	if err := names.loadUsers(ctx, claims); err != nil {
		return nil, err
	}
	items := make([]ReviewerClaimView, 0, len(claims))
	for _, c := range claims {
		v := newReviewerView(c, compliance[c.ClaimID])
		v.ClaimantName = names.user(c.ClaimantID)
		v.ClaimTypeName = names.claimType(ctx, c.ClaimTypeID)
		items = append(items, v)
	}
	return items, nil
}

// availableStatuses lists the statuses a reviewer may set, named from the
// status catalog when it has an entry.
func (s *ClaimService) availableStatuses(ctx context.Context) []StatusOption {
	named := map[int64]string{}
	items, err := s.catalog.ListItems(ctx, domain.CatalogStatus)
	if err != nil {
		s.logger.Warn("Failed to load status catalog", zap.Error(err))
	}
	for _, it := range items {
		named[it.ID] = it.Name
	}
	settable := domain.ReviewerSettable()
	out := make([]StatusOption, 0, len(settable))
	for _, st := range settable {
		name, ok := named[int64(st)]
		if !ok || name == "" {
			name = st.String()
		}
		out = append(out, StatusOption{Code: int(st), Name: name})
	}
	return out
}

// nameResolver caches display names for the duration of one call.
type nameResolver struct {
	s          *ClaimService
	users      map[int64]domain.User
	claimTypes map[int64]string
}

func newNameResolver(s *ClaimService) *nameResolver {
	return &nameResolver{s: s, users: map[int64]domain.User{}, claimTypes: map[int64]string{}}
}

func (n *nameResolver) loadUsers(ctx context.Context, claims []*domain.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	seen := map[int64]bool{}
	ids := make([]int64, 0, len(claims))
	for _, c := range claims {
		if !seen[c.ClaimantID] {
			seen[c.ClaimantID] = true
			ids = append(ids, c.ClaimantID)
		}
	}
	users, err := n.s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to resolve claimants: %w", err)
	}
	n.users = users
	return nil
}

func (n *nameResolver) user(id int64) string {
	return n.users[id].FullName
}

func (n *nameResolver) claimType(ctx context.Context, id int64) string {
	if name, ok := n.claimTypes[id]; ok {
		return name
	}
	name := ""
	if it, err := n.s.catalog.GetClaimType(ctx, id); err == nil {
		name = it.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		n.s.logger.Warn("Failed to resolve claim type name", zap.Int64("claim_type_id", id), zap.Error(err))
	}
	n.claimTypes[id] = name
	return name
}
