package chat

import "errors"

var (
	// ErrNotIntroduced is returned when a session's first message is not a User message.
	ErrNotIntroduced = errors.New("chat: first message must introduce the user")

	// ErrInvalidName is returned for empty, overlong or malformed user names.
	ErrInvalidName = errors.New("chat: invalid user name")

	// ErrMalformedMessage is returned when a message cannot be decoded.
	ErrMalformedMessage = errors.New("chat: malformed message")

	// ErrUnknownKind is returned for message variants outside the protocol.
	ErrUnknownKind = errors.New("chat: unknown message kind")

	// ErrRelayClosed is returned when a session starts on a closed relay.
	ErrRelayClosed = errors.New("chat: relay closed")
)
