package matchhub

import "vibelink/backend/internal/models"

// Client is the interface for one connected endpoint. It abstracts the
// underlying transport so the hub can manage connection types uniformly
// and tests can substitute channel-backed fakes.
type Client interface {
	// GetUserID returns the anonymous identifier of the connected user.
	GetUserID() string
	// GetSessionID returns the call session the client currently belongs
	// to, or "" when not in a call.
	GetSessionID() string
	// SetSessionID assigns the client to a call session. Called by the
	// coordinator after a successful match, and cleared on teardown.
	SetSessionID(string)
	// GetLanguage returns the user's preferred language code for
	// localized system notices.
	GetLanguage() string

	// GetSendChannel returns the channel through which the hub delivers
	// events to this client. Per-client buffering preserves send order,
	// which offer/answer/ICE sequencing depends on.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close gracefully shuts down the client's connection and channels.
	Close()
}
