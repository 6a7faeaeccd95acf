package mqtt

import "errors"

// Broker connection errors. Callers match them with errors.Is.
var (
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrSubscribeFailed is returned when the inbound subscription cannot be established.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrAckFailed is returned when a delivered message cannot be acknowledged.
	ErrAckFailed = errors.New("mqtt: acknowledge failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrTimeout is returned when the broker does not answer in time.
	ErrTimeout = errors.New("mqtt: operation timed out")

	// ErrInvalidAckToken is returned for tokens not issued by this connection.
	ErrInvalidAckToken = errors.New("mqtt: invalid ack token")

	// ErrInvalidChannel is returned for an empty topic.
	ErrInvalidChannel = errors.New("mqtt: channel cannot be empty")
)
