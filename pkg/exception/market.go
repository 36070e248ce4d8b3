package exception

import "errors"

var (
	ErrPriceUnavailable = errors.New("market: latest price unavailable")
	ErrBarUnavailable   = errors.New("market: bar data unavailable")
	ErrFlatVWAP         = errors.New("market: vwap equals bar high, ratio undefined")
)
