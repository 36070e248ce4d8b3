package exception

import "errors"

var (
	ErrNoSetups     = errors.New("config: no valid setups")
	ErrInvalidSetup = errors.New("config: invalid setup")
)
