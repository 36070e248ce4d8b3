package exception

import "errors"

// Order errors
var (
	ErrOrderRejected   = errors.New("order: rejected by venue")
	ErrOrderNoPosition = errors.New("order: no open position")
)
