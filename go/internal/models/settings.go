package models

import "time"

// MarketSettings are the league-wide constants the market enforces
type MarketSettings struct {
	SalaryCap     int64         `json:"salary_cap" yaml:"salary_cap"`
	MaxRosterSize int           `json:"max_roster_size" yaml:"max_roster_size"`
	BiddingWindow time.Duration `json:"bidding_window" yaml:"bidding_window"`
	WaiverWindow  time.Duration `json:"waiver_window" yaml:"waiver_window"`
}

// DefaultMarketSettings returns the reference league's settings
func DefaultMarketSettings() MarketSettings {
	return MarketSettings{
		SalaryCap:     65_000_000,
		MaxRosterSize: 15,
		BiddingWindow: 48 * time.Hour,
		WaiverWindow:  8 * time.Hour,
	}
}
