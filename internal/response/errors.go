package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden  ErrCode = "FORBIDDEN"
	ErrNotAllowed ErrCode = "NOT_ALLOWED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt-specific ──────────────────────────────────────────────
	ErrAttemptSubmitted  ErrCode = "ATTEMPT_SUBMITTED"
	ErrOperationInFlight ErrCode = "OPERATION_IN_FLIGHT"
	ErrSaveFailed        ErrCode = "SAVE_FAILED"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"

	// ─── Bonus game ────────────────────────────────────────────────────
	ErrBonusUnavailable ErrCode = "BONUS_UNAVAILABLE"
	ErrBonusNotReady    ErrCode = "BONUS_NOT_READY"
	ErrBonusInvalid     ErrCode = "BONUS_SOLUTION_INVALID"
	ErrBonusLoadFailed  ErrCode = "BONUS_LOAD_FAILED"
	ErrBonusClaimFailed ErrCode = "BONUS_CLAIM_FAILED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstreamFailed ErrCode = "UPSTREAM_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotAllowed:
		return "You are not allowed to perform this action."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Attempt-specific ──────────────────────────────────────────────
	case ErrAttemptSubmitted:
		return "This attempt has been submitted and can no longer be changed."
	case ErrOperationInFlight:
		return "Another save or submit is still in progress."
	case ErrSaveFailed:
		return "Save Failed. Please try again."
	case ErrSubmitFailed:
		return "Submit Failed. Please try again."

	// ─── Bonus game ────────────────────────────────────────────────────
	case ErrBonusUnavailable:
		return "The bonus game is not available for this attempt."
	case ErrBonusNotReady:
		return "The bonus game has not been loaded yet."
	case ErrBonusInvalid:
		return "The bonus game solution is not correct yet."
	case ErrBonusLoadFailed:
		return "Failed to load bonus game. Please try again."
	case ErrBonusClaimFailed:
		return "Failed to award bonus points. Please try again."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrUpstreamFailed:
		return "The quest backend could not be reached. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
