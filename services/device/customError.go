package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound signals no device exists for the given ID.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrUnauthorized signals an invalid or expired device secret.
	ErrUnauthorized = errors.New("invalid or expired secret")
	// ErrDeviceRevoked signals the device was revoked; revocation
	// overrides secret validity.
	ErrDeviceRevoked = errors.New("device revoked")
	// ErrForbidden signals the caller does not own the device.
	ErrForbidden = errors.New("forbidden")
	// ErrNoInstruction signals no display instruction has been set.
	ErrNoInstruction = errors.New("no display instruction")
	// ErrNotModified signals the caller's cached instruction is current.
	ErrNotModified = errors.New("display instruction not modified")
	// ErrDeviceExists signals a provisioning conflict on the MAC.
	ErrDeviceExists = errors.New("device already exists")
	// ErrNotActive signals an operation requiring an active device.
	ErrNotActive = errors.New("device not active")
	// ErrEmptyPatch signals a settings update with nothing to change.
	ErrEmptyPatch = errors.New("no settings to update")
	// ErrAlreadyProcessed signals a pending device decided twice.
	ErrAlreadyProcessed = errors.New("pending device already processed")
)

// HashMismatchError signals that a client-supplied content hash
// disagrees with the server's canonical recomputation. Expected is
// surfaced so the client can debug its serialization.
type HashMismatchError struct {
	Expected string
}

func (e HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch; expected %s", e.Expected)
}
