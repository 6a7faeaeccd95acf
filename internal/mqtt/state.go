package mqtt

import "time"

// ConnectionState is the health of a broker connection
type ConnectionState int

const (
	// Disconnected means the connection is down and no reconnect is in progress
	Disconnected ConnectionState = iota
	// Connected means the connection is up
	Connected
	// DisconnectedRetrying means the connection dropped and the client is reconnecting
	DisconnectedRetrying
	// Expired means the client gave up reconnecting
	Expired
	// Closed means the connection was closed by this process
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case DisconnectedRetrying:
		return "DisconnectedRetrying"
	case Expired:
		return "Expired"
	case Closed:
		return "Closed"
	}
	return "Unknown"
}

// StatusReason explains a state transition
type StatusReason int

const (
	// ConnectionOK accompanies a successful (re)connect
	ConnectionOK StatusReason = iota
	// CommunicationError means the transport failed
	CommunicationError
	// NoNetwork means the broker is unreachable while reconnecting
	NoNetwork
	// RetryExpired means the reconnect budget is exhausted
	RetryExpired
	// BadCredential means the broker refused the credentials
	BadCredential
	// ClientClose means this process closed the connection
	ClientClose
)

func (r StatusReason) String() string {
	switch r {
	case ConnectionOK:
		return "Connection_Ok"
	case CommunicationError:
		return "Communication_Error"
	case NoNetwork:
		return "No_Network"
	case RetryExpired:
		return "Retry_Expired"
	case BadCredential:
		return "Bad_Credential"
	case ClientClose:
		return "Client_Close"
	}
	return "Unknown"
}

// StatusChange is one observed connection transition
type StatusChange struct {
	State  ConnectionState
	Reason StatusReason
	Err    error
	At     time.Time
}
