package pehub

import "fmt"

// canApprove reports whether a request in the given status may be approved.
// An already approved request is accepted so approval can be retried.
func canApprove(status RequestStatus) (bool, error) {
	switch status {
	case RequestStatusPending, RequestStatusApproved:
		return true, nil
	case RequestStatusRejected:
		return false, fmt.Errorf("%w: cannot approve a rejected request", ErrRequestNotPending)
	default:
		return false, fmt.Errorf("%w: unknown status %q", ErrRequestNotPending, status)
	}
}

// canReject reports whether a request in the given status may be rejected.
// Rejection is only possible from pending.
func canReject(status RequestStatus) (bool, error) {
	switch status {
	case RequestStatusPending:
		return true, nil
	case RequestStatusApproved:
		return false, fmt.Errorf("%w: cannot reject an approved request", ErrRequestNotPending)
	case RequestStatusRejected:
		return false, fmt.Errorf("%w: request already rejected", ErrRequestNotPending)
	default:
		return false, fmt.Errorf("%w: unknown status %q", ErrRequestNotPending, status)
	}
}
