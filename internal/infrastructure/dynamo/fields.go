package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldEmail            = "email"
	fieldPhone            = "phone"
	fieldPasswordHash     = "password_hash"
	fieldLastLogin        = "last_login"
	fieldLastActivity     = "last_activity"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldSecret           = "secret"
)
