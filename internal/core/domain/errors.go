package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrScanInProgress indicates a scan is already running for the plan.
	ErrScanInProgress = errors.New("scan in progress")

	// ErrPlanDisabled indicates the plan is configured but disabled.
	ErrPlanDisabled = errors.New("plan disabled")

	// Connector Errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The plan is misconfigured or the source is unreachable.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrConnector indicates a transient I/O failure from the external
	// source. Page fetches wrap transient failures with this sentinel so
	// the coordinator can retry them with backoff.
	ErrConnector = errors.New("connector error")

	// ErrPageOrder indicates a connector returned a page whose documents
	// are not ordered by non-decreasing modification time. Scanning the
	// view stops without advancing the watermark.
	ErrPageOrder = errors.New("page out of modification-time order")
)
