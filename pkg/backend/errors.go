package backend

import "errors"

// AuthError covers every failed auth exchange: invalid credentials,
// duplicate registration and network or server failure. All of them surface
// as a single user-visible message and are never retried.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func authError(fallback string, err error) *AuthError {
	var api *apiError
	if errors.As(err, &api) {
		return &AuthError{Message: api.msg, Err: err}
	}
	return &AuthError{Message: fallback, Err: err}
}
