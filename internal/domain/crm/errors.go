package crm

import "errors"

// Error taxonomy for external CRM interactions. The orchestrator and the
// entity syncers branch on these sentinels to decide whether a failure is
// fatal to the run, fatal to one stage, or a soft no-op.
var (
	// ErrValidation indicates bad input; the call must not be retried
	ErrValidation = errors.New("crm: invalid input")

	// ErrAuthUnavailable indicates no usable credential could be resolved
	// for the tenant. Fatal to the whole run.
	ErrAuthUnavailable = errors.New("crm: no usable credential")

	// ErrAuthFailure indicates the external CRM rejected the credential.
	// Fatal to the whole run.
	ErrAuthFailure = errors.New("crm: authentication rejected")

	// ErrPermissionDenied indicates the external CRM forbids the
	// operation. Fatal to the affected stage only.
	ErrPermissionDenied = errors.New("crm: permission denied")

	// ErrNotSupported indicates the resource is absent for this tenant
	// (e.g. the feature is not enabled). Treated as a soft success with
	// zero effect.
	ErrNotSupported = errors.New("crm: resource not available for tenant")

	// ErrRateLimited indicates the external CRM throttled the request.
	// Fatal to the stage this run; expected to heal on a later full sync.
	ErrRateLimited = errors.New("crm: rate limited")

	// ErrRelationUnresolved indicates a referenced local entity could not
	// be resolved. The record is skipped and counted, never escalated.
	ErrRelationUnresolved = errors.New("crm: related entity unresolved")

	// ErrUnexpectedTransport indicates an unclassified transport failure.
	// Rethrown by syncers and caught as a stage failure.
	ErrUnexpectedTransport = errors.New("crm: unexpected transport error")
)
