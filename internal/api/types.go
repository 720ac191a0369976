package api

import "github.com/nhle/bidboard/internal/model"

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is returned by POST /api/users/login.
type LoginResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	User         model.User `json:"user"`
}

// refreshRequest is the body of POST /api/users/refresh-token.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse is returned by POST /api/users/refresh-token.
type refreshResponse struct {
	Token string `json:"token"`
}

// errorResponse is the backend's error envelope. Either field may be set.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
