package notify

import (
	"fmt"
	"strings"
)

// Kind selects the message template.
type Kind string

const (
	KindNewClaim    Kind = "new_claim"
	KindResubmitted Kind = "resubmitted"
	KindReviewed    Kind = "reviewed"
	KindRejected    Kind = "rejected"
	KindPaid        Kind = "paid"
	KindUnpaid      Kind = "unpaid"
)

// Payload carries the values templates interpolate.
type Payload struct {
	ClaimID      int64
	ClaimantName string
	ClaimType    string
	StartDate    string
	EndDate      string
	Days         int
	Reason       string
}

// Render builds subject and body for kind. ok is false for unknown kinds.
func Render(kind Kind, p Payload) (subject, body string, ok bool) {
	var b strings.Builder
	switch kind {
	case KindNewClaim, KindResubmitted:
		verb := "registered"
		if kind == KindResubmitted {
			verb = "resubmitted"
		}
		subject = fmt.Sprintf("Incapacity claim #%d %s", p.ClaimID, verb)
		fmt.Fprintf(&b, "Claim #%d was %s and is pending review.\n", p.ClaimID, verb)
		if p.ClaimantName != "" {
			fmt.Fprintf(&b, "Claimant: %s\n", p.ClaimantName)
		}
		if p.ClaimType != "" {
			fmt.Fprintf(&b, "Type: %s\n", p.ClaimType)
		}
		if p.StartDate != "" {
			fmt.Fprintf(&b, "Period: %s to %s (%d days)\n", p.StartDate, p.EndDate, p.Days)
		}
	case KindReviewed:
		subject = fmt.Sprintf("Your incapacity claim #%d was reviewed", p.ClaimID)
		fmt.Fprintf(&b, "Your claim #%d has been reviewed by the administration.\n", p.ClaimID)
	case KindRejected:
		subject = fmt.Sprintf("Your incapacity claim #%d was rejected", p.ClaimID)
		fmt.Fprintf(&b, "Your claim #%d was rejected.\nReason: %s\n", p.ClaimID, p.Reason)
		b.WriteString("You can correct it and resubmit.\n")
	case KindPaid:
		subject = fmt.Sprintf("Your incapacity claim #%d was paid", p.ClaimID)
		fmt.Fprintf(&b, "Your claim #%d has been marked as paid.\n", p.ClaimID)
	case KindUnpaid:
		subject = fmt.Sprintf("Your incapacity claim #%d was not paid", p.ClaimID)
		fmt.Fprintf(&b, "Your claim #%d has been marked as not paid.\n", p.ClaimID)
	default:
		return "", "", false
	}
	return subject, b.String(), true
}
