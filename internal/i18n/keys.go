// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeyValidationInvalid = "validation.invalid"
	KeyNotFound          = "common.not_found"
	KeyInternalError     = "common.internal_error"
	KeyRateLimited       = "common.rate_limited"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAccessDenied     = "auth.access_denied"

	// Commissions
	KeyCommissionDeleted  = "commission.deleted"
	KeyAdjustmentApproved = "adjustment.approved"
	KeyAdjustmentRejected = "adjustment.rejected"
	KeyAnalyticsRolledUp  = "analytics.rolled_up"
	KeyPayoutSettled      = "payout.settled"
)
