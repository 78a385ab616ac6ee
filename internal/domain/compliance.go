package domain

import "sort"

// ComplianceEntry is the per-document result for one required document type.
type ComplianceEntry struct {
	DocTypeID int64 `json:"doc_type_id"`
	Required  bool  `json:"required"`
	Uploaded  bool  `json:"uploaded"`
	Complete  bool  `json:"complete"`
}

// ComputeCompliance returns one entry per required document type, ordered by id.
// A document is complete iff it is attached.
func ComputeCompliance(required, attached []int64) []ComplianceEntry {
	have := make(map[int64]struct{}, len(attached))
	for _, id := range attached {
		have[id] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(required))
	out := make([]ComplianceEntry, 0, len(required))
	for _, id := range required {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		_, ok := have[id]
		out = append(out, ComplianceEntry{
			DocTypeID: id,
			Required:  true,
			Uploaded:  ok,
			Complete:  ok,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DocTypeID < out[j].DocTypeID })
	return out
}

// IsCompliant reports whether every entry is complete.
func IsCompliant(entries []ComplianceEntry) bool {
	for _, e := range entries {
		if !e.Complete {
			return false
		}
	}
	return true
}
