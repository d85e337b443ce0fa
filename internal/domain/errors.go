package domain

import "errors"

var (
	// ErrSourceUnavailable marks a retailer that could not be reached or blocked the request.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParseFailure marks a value (price, page) that could not be understood.
	ErrParseFailure = errors.New("parse failure")
	// ErrNoResults is returned when discovery produced nothing usable.
	ErrNoResults = errors.New("no results")
	// ErrDeliveryFailure marks a notification that no channel accepted.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrStateConflict marks a monitor transition lost to a concurrent writer.
	ErrStateConflict = errors.New("state conflict")

	ErrEmptyQuery      = errors.New("query is empty")
	ErrMonitorNotFound = errors.New("monitor not found")
)
