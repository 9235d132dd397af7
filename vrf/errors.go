package vrf

import "errors"

var (
	// ErrInvalidHandle indicates a malformed handle.
	ErrInvalidHandle = errors.New("vrf: invalid handle")

	// ErrUnknownHandle indicates the handle was never issued or was already revealed.
	ErrUnknownHandle = errors.New("vrf: unknown or already revealed handle")

	// ErrInvalidProof indicates a delivered value does not verify.
	ErrInvalidProof = errors.New("vrf: invalid proof")

	// ErrInvalidKey indicates the provider key could not be parsed.
	ErrInvalidKey = errors.New("vrf: invalid provider key")
)
