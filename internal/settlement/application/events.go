package application

import "time"

// GainCredited is published once per user per run with the user's total
// credited amount for the day.
type GainCredited struct {
	UserID     int64     `json:"user_id"`
	Amount     int64     `json:"amount"`
	Passes     int       `json:"passes"`
	GainDate   string    `json:"gain_date"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PassExpired is published for each pass moved to expired by the sweep.
type PassExpired struct {
	UserID     int64     `json:"user_id"`
	UserPassID int64     `json:"user_pass_id"`
	PassName   string    `json:"pass_name"`
	OccurredAt time.Time `json:"occurred_at"`
}
