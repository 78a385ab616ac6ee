package domain

import "fmt"

// ClaimStatus codes match the claim_status parameter catalog.
type ClaimStatus int

const (
	StatusPending  ClaimStatus = 11
	StatusReviewed ClaimStatus = 12
	StatusPaid     ClaimStatus = 40
	StatusUnpaid   ClaimStatus = 44
	StatusRejected ClaimStatus = 50
)

var statusNames = map[ClaimStatus]string{
	StatusPending:  "PENDING",
	StatusReviewed: "REVIEWED",
	StatusPaid:     "PAID",
	StatusUnpaid:   "UNPAID",
	StatusRejected: "REJECTED",
}

func (s ClaimStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Valid reports whether s is one of the five known codes.
func (s ClaimStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ReviewerSettable lists the statuses a reviewer may set, in display order.
func ReviewerSettable() []ClaimStatus {
	return []ClaimStatus{StatusReviewed, StatusPaid, StatusUnpaid, StatusRejected}
}

// TransitionPayload carries the inputs some transitions require.
type TransitionPayload struct {
	RejectionMessage string
	// OwnsClaim is set by the caller after comparing the claim owner with the actor.
	OwnsClaim bool
}

// Transition decides the next status for a requested change.
// It has no side effects; persistence and clearing the rejection message are
// the caller's job.
func Transition(current, requested ClaimStatus, role Role, payload TransitionPayload) (ClaimStatus, error) {
	if !current.Valid() {
		return current, fmt.Errorf("%w: unknown current status %d", ErrValidation, int(current))
	}
	if !requested.Valid() {
		return current, fmt.Errorf("%w: unknown status %d", ErrValidation, int(requested))
	}

	switch role {
	case RoleAdmin:
		if requested == StatusPending {
			return current, forbidden(role, current, requested)
		}
		if requested == StatusRejected && payload.RejectionMessage == "" {
			return current, fmt.Errorf("%w: rejection message is required", ErrValidation)
		}
		// PENDING and every reviewer-settable state may move to any reviewer-settable state.
		return requested, nil

	case RoleEmployee:
		if current == StatusRejected && requested == StatusPending {
			if !payload.OwnsClaim {
				return current, fmt.Errorf("%w: only the claimant may resubmit", ErrOwnership)
			}
			return StatusPending, nil
		}
		return current, forbidden(role, current, requested)

	default:
		return current, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
}

// MarkReviewed is the PENDING/REVIEWED -> REVIEWED convenience transition.
// It is idempotent on REVIEWED.
func MarkReviewed(current ClaimStatus) (ClaimStatus, error) {
	if current == StatusPending || current == StatusReviewed {
		return StatusReviewed, nil
	}
	return current, forbidden(RoleAdmin, current, StatusReviewed)
}

func forbidden(role Role, from, to ClaimStatus) error {
	return fmt.Errorf("%w: %s may not move %s to %s", ErrForbiddenTransition, role, from, to)
}
