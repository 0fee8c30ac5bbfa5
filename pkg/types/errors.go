package types

import "errors"

// Domain errors shared across packages
var (
	// Store errors
	ErrNotInitialized = errors.New("store not initialized")
	ErrNotFound       = errors.New("not found")
	ErrStoreClosed    = errors.New("store closed")

	// Ingestion errors
	ErrInvalidEntity = errors.New("invalid entity")

	// Reconciliation errors
	ErrSyncInProgress = errors.New("reconciliation already in progress")
	ErrUnsupported    = errors.New("no extractor supports this file")

	// Search errors
	ErrInvalidMode = errors.New("invalid search mode")
)
