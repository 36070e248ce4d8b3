package model

import "time"

// Trade is one tick from the live feed.
type Trade struct {
	Symbol     string
	Price      float64
	Size       float64
	Conditions []string
	Timestamp  time.Time
}

// Bar is one aggregated interval from the live feed.
type Bar struct {
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	VWAP      float64
	Timestamp time.Time
}
