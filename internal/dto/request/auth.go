package request

// Formats are checked by the domain so clients get the same messages the
// workflows produce. Tags here only reject missing fields.

type RegisterRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	Name  string `json:"name" validate:"required,max=100"`
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	Code  string `json:"code" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
