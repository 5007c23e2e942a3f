package domain

import "errors"

var (
	// ErrInvalidCredentials is returned on a bad username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned when registering a username that is already
	// taken, whether the collision was seen in the cache or the store.
	ErrUserExists = errors.New("username already exists")

	// ErrUserNotFound is returned when an identity cannot be resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrAuthBackendUnavailable marks a transport failure reaching the token
	// validator. Callers must be able to tell "your token is bad" apart from
	// "the auth subsystem is down".
	ErrAuthBackendUnavailable = errors.New("authentication backend unavailable")

	// ErrUpstreamUnavailable marks a transport failure reaching a downstream
	// service from the gateway.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)
