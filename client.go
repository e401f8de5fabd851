package copilotsdk

import (
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/client"
)

// Client manages one connection to the Copilot CLI server and the sessions
// created over it. See the internal client package for the full method set:
// Start, Stop, ForceStop, CreateSession, ResumeSession, Ping, GetStatus,
// GetAuthStatus, ListModels, ListSessions, and the lifecycle subscriptions.
type Client = client.Client

// State is the connection state of a Client.
type State = client.State

// Connection states.
const (
	StateDisconnected = client.StateDisconnected
	StateConnecting   = client.StateConnecting
	StateConnected    = client.StateConnected
	StateError        = client.StateError
)

// ExpectedProtocolVersion is the protocol version this SDK speaks. The
// server must report the same version during the startup handshake.
const ExpectedProtocolVersion = client.ExpectedProtocolVersion

// NewClient creates a client from the given options.
//
// Construction validates the option set (an external server URL cannot be
// combined with process or auth options) but does not launch anything;
// call Start, or rely on auto-start when creating the first session.
func NewClient(opts ...Option) (*Client, error) {
	options, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	return client.New(options)
}
