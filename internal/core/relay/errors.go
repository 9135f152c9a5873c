package relay

import "errors"

var (
	// ErrDegenerateCurve is returned when curve pricing would divide by a
	// zero supply or balance.
	ErrDegenerateCurve = errors.New("degenerate curve: zero supply or balance")

	// ErrMalformedRequest is returned when a transfer memo does not decode
	// to a conversion request, or names a currency the relay does not carry.
	ErrMalformedRequest = errors.New("malformed conversion request")

	// ErrSelfConversion is returned when the requested target currency
	// equals the currency being sent in.
	ErrSelfConversion = errors.New("cannot convert a currency to itself")

	// ErrSlippageExceeded is returned when the computed output falls below
	// the request's minimum acceptable return.
	ErrSlippageExceeded = errors.New("output below minimum return")

	// ErrUnexpectedNotification is returned for transfer notifications the
	// relay has no business receiving.
	ErrUnexpectedNotification = errors.New("received unexpected notification of transfer")
)
