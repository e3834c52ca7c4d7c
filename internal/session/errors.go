package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session closed")
	ErrDuplicateSession = errors.New("session id already registered")
	ErrInvalidState     = errors.New("invalid session state transition")
	ErrSendQueueFull    = errors.New("send queue full")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrTicketRedeemed   = errors.New("ticket already redeemed")
)

// Close codes sent to clients when the server ends a session.
const (
	CloseMalformed   = 4000
	CloseUnknown     = 4001
	CloseUnavailable = 4002
	CloseShipRemoved = 4003
	CloseIdle        = 4004
	CloseInitFailed  = 4005
)
