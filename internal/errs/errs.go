// Package errs defines the sentinel errors of the matching core.
// Handlers and the hub map these onto wire-level error events; nothing
// here is fatal to the process, every error is scoped to one user or
// one session.
package errs

import "errors"

var (
	// ErrDuplicateUser is returned by the presence registry when a user
	// joins while already registered. The previous entry must leave first.
	ErrDuplicateUser = errors.New("user already present in registry")

	// ErrAlreadyMatching is returned when a user requests a match while
	// already holding a waiting or active request.
	ErrAlreadyMatching = errors.New("user already has an active match request")

	// ErrNoMatchFound is the terminal outcome of a match request that
	// stayed in the waiting pool past the match timeout. Recoverable:
	// the caller may request again.
	ErrNoMatchFound = errors.New("no compatible partner found before timeout")

	// ErrUnknownSession is returned for any operation on a session ID
	// the coordinator does not know.
	ErrUnknownSession = errors.New("unknown call session")

	// ErrNotParticipant is returned when a relay sender is not one of
	// the session's two registered participants.
	ErrNotParticipant = errors.New("sender is not a session participant")

	// ErrInsufficientFunds is returned by the wallet when a debit would
	// take the coin balance below zero.
	ErrInsufficientFunds = errors.New("insufficient coin balance")

	// ErrMediaAccess covers media-device permission and availability
	// failures, including acquisition timeouts. Recoverable: the user
	// gets a corrective prompt.
	ErrMediaAccess = errors.New("media device not accessible")

	// ErrSignalingTimeout means neither side reported a connected
	// transport within the connect timeout. The session is torn down and
	// both participants may re-enter matching.
	ErrSignalingTimeout = errors.New("signaling did not complete in time")
)
