package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrConflict: write collided with existing state
// - ErrChecksumMismatch: journaled migration differs from the registry
// - ErrUnavailable: resource temporarily unavailable (e.g. migration lock held)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrConflict         = errors.New("conflict")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrUnavailable      = errors.New("unavailable")
)
