package dispatch

import "errors"

// ErrInvalidProviderConfig is returned by provider constructors when the
// supplied configuration cannot produce a working provider.
var ErrInvalidProviderConfig = errors.New("invalid provider configuration")
