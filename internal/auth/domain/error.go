package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidUserID      = errors.New("invalid_user_id")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserExists         = errors.New("user_already_exists")
	ErrUserInactive       = errors.New("user_inactive")
	ErrProtectedUser      = errors.New("protected_user")
	ErrTooManyAttempts    = errors.New("too_many_attempts")
	ErrSessionExpired     = errors.New("session_expired")
	ErrSessionRevoked     = errors.New("session_revoked")
	ErrInvalidSession     = errors.New("invalid_session")
)
