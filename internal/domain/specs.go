package domain

import "time"

// AttributeMap holds structured product attributes such as "ram" or "storage".
type AttributeMap map[string]string

// AttributeDiff is one attribute where two products disagree.
type AttributeDiff struct {
	Name  string
	Left  string
	Right string
}

// ComparisonResult is the outcome of comparing two products' attributes.
type ComparisonResult struct {
	Left        AttributeMap
	Right       AttributeMap
	Differences []AttributeDiff
	Summary     string
}

// TrustSignals are observed reliability measurements for one source.
type TrustSignals struct {
	ReturnRate float64 `json:"returnRate"`
	Complaints int     `json:"complaints"`
}

// EventKind classifies events published on the in-process bus.
type EventKind string

const (
	EventPriceDrop   EventKind = "price_drop"
	EventTransition  EventKind = "transition"
	EventMessage     EventKind = "message"
	EventCheckFailed EventKind = "check_failed"
)

// Event is a notification for in-process subscribers (UI, logging sinks).
type Event struct {
	Kind      EventKind
	MonitorID string
	From      MonitorStatus
	To        MonitorStatus
	Drop      *DropEvent
	Message   *Message
	Err       string
	At        time.Time
}
