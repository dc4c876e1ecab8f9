package claim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMac signals a MAC that cannot be canonicalized.
	ErrInvalidMac = errors.New("invalid mac")
	// ErrBadHmac signals an HMAC mismatch against the deployment key.
	ErrBadHmac = errors.New("invalid hmac")
	// ErrStaleTimestamp signals an HMAC-valid request outside the freshness window.
	ErrStaleTimestamp = errors.New("stale timestamp")
	// ErrDeviceNotFound signals no Device row exists for the MAC; the
	// request has been parked as a pending device for admin approval.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrClaimNotFound signals no claim ticket exists for the code.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrClaimExpired signals the claim ticket's TTL has passed.
	ErrClaimExpired = errors.New("claim expired")
	// ErrAlreadyClaimed signals the claim was already attached to a user.
	ErrAlreadyClaimed = errors.New("claim already claimed")
)

// StillPendingError signals that a polled claim has not been attached
// yet. The device should back off and retry; this is an expected
// outcome, not a failure.
type StillPendingError struct {
	Status string
}

func (e StillPendingError) Error() string {
	return fmt.Sprintf("claim still pending; status: %s", e.Status)
}
