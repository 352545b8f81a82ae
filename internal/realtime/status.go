package realtime

// State is the lifecycle position of the push connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// ReasonClientClose is recorded when the channel is torn down locally.
const ReasonClientClose = "io client disconnect"

// Status is the observable connection state rendered by the status indicator.
type Status struct {
	State            State  `json:"state"`
	Connected        bool   `json:"connected"`
	LastError        string `json:"last_error,omitempty"`
	DisconnectReason string `json:"disconnect_reason,omitempty"`
	ReconnectAttempt int    `json:"reconnect_attempt"`
}

type signalKind int

const (
	signalConnecting signalKind = iota
	signalConnected
	signalDisconnected
	signalConnectError
	signalReconnecting
	signalReconnected
	signalReconnectError
	signalReconnectFailed
)

type signal struct {
	kind    signalKind
	reason  string
	message string
	attempt int
}

func (k signalKind) String() string {
	switch k {
	case signalConnecting:
		return "connecting"
	case signalConnected:
		return "connect"
	case signalDisconnected:
		return "disconnect"
	case signalConnectError:
		return "connect_error"
	case signalReconnecting:
		return "reconnect_attempt"
	case signalReconnected:
		return "reconnect"
	case signalReconnectError:
		return "reconnect_error"
	case signalReconnectFailed:
		return "reconnect_failed"
	default:
		return "unknown"
	}
}

// reduceStatus applies one lifecycle signal to the current status.
func reduceStatus(current Status, sig signal) Status {
	next := current
	switch sig.kind {
	case signalConnecting:
		next.State = StateConnecting
		next.Connected = false
	case signalConnected, signalReconnected:
		next.State = StateConnected
		next.Connected = true
		next.LastError = ""
		next.DisconnectReason = ""
		next.ReconnectAttempt = 0
	case signalDisconnected:
		next.State = StateDisconnected
		next.Connected = false
		next.DisconnectReason = sig.reason
	case signalConnectError:
		next.State = StateDisconnected
		next.Connected = false
		next.LastError = sig.message
	case signalReconnecting:
		next.State = StateReconnecting
		next.Connected = false
		next.ReconnectAttempt = sig.attempt
	case signalReconnectError:
		next.Connected = false
		next.LastError = sig.message
	case signalReconnectFailed:
		next.State = StateDisconnected
		next.Connected = false
	}
	return next
}
