package analyses

import "errors"

var (
	ErrNotFound           = errors.New("analysis record not found")
	ErrAnalysisInProgress = errors.New("analysis already in progress for file")
)

const (
	ErrorCodeOracleFailure     = "ORACLE_FAILURE"
	ErrorCodeOracleTimeout     = "ORACLE_TIMEOUT"
	ErrorCodeReferenceNotFound = "REFERENCE_NOT_FOUND"
	ErrorCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

// Remediation values tell the caller what recovery the UI should offer.
const (
	RemediationRetry          = "retry_analysis"
	RemediationManualEntry    = "manual_entry"
	RemediationContactSupport = "contact_support"
)
