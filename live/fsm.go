package live

import "parlo/rtc"

// ConnState is the derived connection state of the single active
// session. Transitions are driven exclusively by transport signals.
type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnReconnecting ConnState = "reconnecting"
	ConnFailed       ConnState = "failed"
)

type effect int

const (
	effectNone effect = iota
	// effectReconnect schedules a reconnect attempt numbered by the
	// decision's Attempts field.
	effectReconnect
	// effectFail reports a non-recoverable connection error; the
	// caller suppresses the report when the state was already failed.
	effectFail
)

type decision struct {
	State    ConnState
	Attempts int
	Effect   effect
}

// decide is the connection state table. Total over every signal: no
// input leaves the state undefined. attempts counts consecutive drops
// since the last connected signal; it is consumed and returned so the
// function stays pure.
func decide(cur ConnState, sig rtc.Signal, attempts, max int) decision {
	switch sig {
	case rtc.SignalChecking:
		return decision{State: ConnConnecting, Attempts: attempts}
	case rtc.SignalConnected:
		return decision{State: ConnConnected, Attempts: 0}
	case rtc.SignalDisconnected:
		drops := attempts + 1
		if drops < max {
			return decision{State: ConnReconnecting, Attempts: drops, Effect: effectReconnect}
		}
		return decision{State: ConnFailed, Attempts: drops, Effect: effectFail}
	case rtc.SignalFailed:
		return decision{State: ConnFailed, Attempts: attempts, Effect: effectFail}
	case rtc.SignalClosed:
		return decision{State: ConnDisconnected, Attempts: attempts}
	default:
		// Unknown signals leave the machine where it is.
		return decision{State: cur, Attempts: attempts}
	}
}
