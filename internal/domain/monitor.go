package domain

import "time"

// MonitorStatus enumerates the price monitor lifecycle.
type MonitorStatus string

const (
	MonitorActive    MonitorStatus = "active"
	MonitorTriggered MonitorStatus = "triggered"
	MonitorRemoved   MonitorStatus = "removed"
)

// Valid reports whether s is a known status.
func (s MonitorStatus) Valid() bool {
	switch s {
	case MonitorActive, MonitorTriggered, MonitorRemoved:
		return true
	}
	return false
}

// PriceMonitor is a user's standing request to be told when Query drops to
// TargetPriceMinor or below.
type PriceMonitor struct {
	ID               string
	OwnerID          string
	Query            string
	TargetPriceMinor int64
	Status           MonitorStatus
	LastPriceMinor   int64
	LastCheckedAt    time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DropEvent is emitted once per qualifying price drop.
type DropEvent struct {
	ID               string
	MonitorID        string
	OwnerID          string
	Query            string
	TargetPriceMinor int64
	PrevPriceMinor   int64
	Listing          CanonicalListing
	ObservedAt       time.Time
}

// Message is what a notification channel delivers. Tag is stable per monitor
// and lets channels drop repeats.
type Message struct {
	Tag       string
	MonitorID string
	OwnerID   string
	Subject   string
	Body      string
	URL       string
}
