package auth

import "errors"

var (
	ErrUserNotFound      = errors.New("auth: user not found")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrMissingToken      = errors.New("auth: missing token")
)
