package cache

// Durable keys owned by the client. The dashboard record lives under one
// fixed key for every identity; Guard keeps identities apart.
const (
	KeyDashboard        = "dashboard_data"
	KeyIdentity         = "current_user_id"
	KeyAuthToken        = "auth_token"
	KeyUserProfile      = "user_profile"
	KeySavedCredentials = "saved_credentials"
	KeyLoginAttempts    = "login_attempts"
	KeyLastLogin        = "last_login"
)

// PurgeKeys is every record that belongs to the signed-in identity.
var PurgeKeys = []string{
	KeyDashboard,
	KeyAuthToken,
	KeyUserProfile,
	KeySavedCredentials,
	KeyLoginAttempts,
	KeyLastLogin,
}
