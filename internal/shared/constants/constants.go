package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Content Types
	ContentTypeJSON = "application/json"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
	ContextKeyAdminRole = "admin_role"

	// Plan types. PlanFree is the unentitled state every downgrade resets to.
	PlanFree = "free"

	// Grant source families
	SourceTypeCode  = "code"
	SourceTypeToken = "token"

	// User status
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"

	// Device activity status values on code-scoped device records.
	// Empty status on legacy rows counts as active when the active flag allows it.
	DeviceStatusActive   = "active"
	DeviceStatusReleased = "released"

	// Database table names
	TableUsers        = "users"
	TableUserDevices  = "user_devices"
	TableCodes        = "entitlement_codes"
	TableCodeDevices  = "entitlement_code_devices"
	TableRedeemTokens = "redeem_tokens"
	TableRedemptions  = "redemptions"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgValidationFailed    = "Validation failed"
)
