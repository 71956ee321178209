package livesync

import "dispatch/internal/domain"

// ApplyPatch applies a partial change to an order snapshot and returns the
// updated copy. The input snapshot is never mutated and a patch is never
// treated as a full replacement record: fields absent from the patch keep
// their current value.
func ApplyPatch(snapshot domain.Order, patch domain.OrderPatch) domain.Order {
	next := snapshot

	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.RiderID != nil {
		next.RiderID = *patch.RiderID
	}
	if patch.RejectionReason != nil {
		next.RejectionReason = *patch.RejectionReason
	}
	if patch.CancelledBy != nil {
		next.CancelledBy = *patch.CancelledBy
	}
	if !patch.UpdatedAt.IsZero() {
		next.UpdatedAt = patch.UpdatedAt
	}

	return next
}
