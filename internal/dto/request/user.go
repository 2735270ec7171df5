package request

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateUserRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	Name  string `json:"name" validate:"max=100"`
	Role  string `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
}

type UpdateUserRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// WebhookUserRequest comes from trusted upstream systems; name is optional.
type WebhookUserRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	Name  string `json:"name,omitempty" validate:"max=100"`
}
