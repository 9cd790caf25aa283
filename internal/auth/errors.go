package auth

import "errors"

// ErrTokenInvalid is returned for any token that fails validation:
// bad signature, expired, malformed, wrong kind, or missing fields.
// Expiry specifically can still be distinguished with
// errors.Is(err, jwt.ErrTokenExpired) since the cause is wrapped.
var ErrTokenInvalid = errors.New("auth: invalid token")
