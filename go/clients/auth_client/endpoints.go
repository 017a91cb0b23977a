package auth_client

const (
	// API Endpoints
	LoginEndpoint   = "/api/auth/login"
	SignupEndpoint  = "/api/auth/signup"
	RefreshEndpoint = "/api/auth/refresh"
	LogoutEndpoint  = "/api/auth/logout"
)
