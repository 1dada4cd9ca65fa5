package models

import "time"

// Alert is emitted when a rolling-window count reaches its threshold.
type Alert struct {
	ID    string    `json:"id"`
	Time  time.Time `json:"time"`
	Scope string    `json:"scope"`
	Group string    `json:"group"`
	Rule  string    `json:"rule"`
	Count int       `json:"count"`
}
