package tax

import "errors"

var (
	ErrProviderUnavailable = errors.New("tax provider unavailable")
	ErrMalformedResult     = errors.New("tax provider returned a malformed result")
)
