package middleware

import "errors"

var (
	errMissingToken = errors.New("Authentication credentials were not provided.")
	errForbidden    = errors.New("You do not have permission to perform this action.")
	errRateLimited  = errors.New("Request was throttled.")
)
