package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidAccessCode  ErrCode = "INVALID_ACCESS_CODE"
	ErrConnectionActive   ErrCode = "CONNECTION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden      ErrCode = "FORBIDDEN"
	ErrNotYourSession ErrCode = "NOT_YOUR_SESSION"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrSessionNotLive   ErrCode = "SESSION_NOT_LIVE"
	ErrSessionCompleted ErrCode = "SESSION_COMPLETED"
	ErrSessionExpired   ErrCode = "SESSION_EXPIRED"
	ErrWrongPhase       ErrCode = "WRONG_PHASE"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrQuestionLocked   ErrCode = "QUESTION_LOCKED"
	ErrAnswerRequired   ErrCode = "ANSWER_REQUIRED"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrDeviceAttached   ErrCode = "DEVICE_ALREADY_ATTACHED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrMediaUnavailable ErrCode = "MEDIA_UNAVAILABLE"
	ErrNotRecording     ErrCode = "NOT_RECORDING"
	ErrAlreadyRecording ErrCode = "ALREADY_RECORDING"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrPlatformUnreachable ErrCode = "PLATFORM_UNREACHABLE"
	ErrInternal            ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidAccessCode:
		return "The access code is incorrect."
	case ErrConnectionActive:
		return "This session is already open on another device."
	case ErrSessionInvalidated:
		return "Your session has been invalidated."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotYourSession:
		return "This interview session belongs to another candidate."

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

	// ─── Session-specific ──────────────────────────────────────────────
	case ErrSessionNotLive:
		return "This interview session is not currently live."
	case ErrSessionCompleted:
		return "This interview has already been completed."
	case ErrSessionExpired:
		return "This interview session has expired."
	case ErrWrongPhase:
		return "This action is not available in the current interview phase."
	case ErrNoQuestions:
		return "No questions are available for this interview."
	case ErrQuestionLocked:
		return "This question has already been answered and cannot be changed."
	case ErrAnswerRequired:
		return "An answer is required before moving on."
	case ErrQuestionNotFound:
		return "The requested question does not exist."
	case ErrDeviceAttached:
		return "A device is already attached to this session."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrMediaUnavailable:
		return "Camera or microphone could not be accessed."
	case ErrNotRecording:
		return "No recording is in progress."
	case ErrAlreadyRecording:
		return "A recording is already in progress."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrPlatformUnreachable:
		return "The interview platform could not be reached."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
