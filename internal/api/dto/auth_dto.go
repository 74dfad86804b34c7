package dto

// RegisterRequest payload for new local accounts.
type RegisterRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginRequest payload for local login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// PasswordResetRequest payload for requesting a reset token.
type PasswordResetRequest struct {
	Email string `json:"email" form:"email"`
}

// PasswordResetConfirm payload for applying a reset.
type PasswordResetConfirm struct {
	Token    string `json:"token" form:"token"`
	Password string `json:"password" form:"password"`
}

// UserResponse is the client-visible account shape.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
