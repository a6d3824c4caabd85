package auth

import "errors"

// Token validation failures. The auth middleware maps all of them to 401.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrWrongTokenType   = errors.New("wrong token type")
)
