package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the maximum user name length in runes.
const MaxNameLength = 32

// Kind identifies the variant held by a Message.
type Kind uint8

const (
	// KindUser announces or renames a user.
	KindUser Kind = iota + 1
	// KindClientMessage is chat text sent by a client.
	KindClientMessage
	// KindChat is chat text relayed to other clients, attributed to a user.
	KindChat
)

// String returns the wire tag of the kind.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "User"
	case KindClientMessage:
		return "ClientMessage"
	case KindChat:
		return "Chat"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// User identifies a chat participant.
type User struct {
	Name string `json:"name"`
}

// String implements fmt.Stringer.
func (u User) String() string { return u.Name }

// Normalize trims and NFC-normalizes the name and validates it.
func (u User) Normalize() (User, error) {
	name, err := NormalizeName(u.Name)
	if err != nil {
		return User{}, err
	}
	return User{Name: name}, nil
}

// NormalizeName trims surrounding space, applies Unicode NFC normalization and
// rejects names that are empty, longer than MaxNameLength runes, or contain
// control characters.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("%w: %d runes, max %d", ErrInvalidName, n, MaxNameLength)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: contains control characters", ErrInvalidName)
	}
	return name, nil
}

// Message is a closed set of variants selected by Kind. User is set for
// KindUser and KindChat; Content is set for KindClientMessage and KindChat.
//
// On the wire a Message is a single-key JSON object named after its kind:
//
//	{"User":{"name":"ann"}}
//	{"ClientMessage":"hello"}
//	{"Chat":{"user":{"name":"ann"},"content":"hello"}}
type Message struct {
	Kind    Kind
	User    User
	Content string
}

// NewUser returns a KindUser message.
func NewUser(u User) Message {
	return Message{Kind: KindUser, User: u}
}

// NewClientMessage returns a KindClientMessage message.
func NewClientMessage(content string) Message {
	return Message{Kind: KindClientMessage, Content: content}
}

// NewChat returns a KindChat message.
func NewChat(u User, content string) Message {
	return Message{Kind: KindChat, User: u, Content: content}
}

type chatBody struct {
	User    User   `json:"user"`
	Content string `json:"content"`
}

// MarshalJSON implements json.Marshaler.
func (m Message) MarshalJSON() ([]byte, error) {
	var body any
	switch m.Kind {
	case KindUser:
		body = m.User
	case KindClientMessage:
		body = m.Content
	case KindChat:
		body = chatBody{User: m.User, Content: m.Content}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, m.Kind)
	}
	return json.Marshal(map[string]any{m.Kind.String(): body})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("%w: expected exactly one variant, got %d", ErrMalformedMessage, len(obj))
	}

	for tag, raw := range obj {
		var out Message
		switch tag {
		case "User":
			out.Kind = KindUser
			if err := decodeStrict(raw, &out.User); err != nil {
				return err
			}
		case "ClientMessage":
			out.Kind = KindClientMessage
			if err := decodeStrict(raw, &out.Content); err != nil {
				return err
			}
		case "Chat":
			var body chatBody
			if err := decodeStrict(raw, &body); err != nil {
				return err
			}
			out = NewChat(body.User, body.Content)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownKind, tag)
		}
		*m = out
	}
	return nil
}

// ParseMessage decodes one wire message. Every failure matches either
// ErrMalformedMessage or ErrUnknownKind.
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		if errors.Is(err, ErrMalformedMessage) || errors.Is(err, ErrUnknownKind) {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return m, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return nil
}
