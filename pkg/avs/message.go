package avs

import (
	"encoding/binary"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Header identifies a directive or event within the protocol.
type Header struct {
	// Namespace is the capability interface, e.g. "SpeechSynthesizer".
	Namespace string `json:"namespace"`

	// Name is the operation within the namespace, e.g. "Speak".
	Name string `json:"name"`

	// MessageID uniquely identifies this message.
	MessageID string `json:"messageId"`

	// DialogRequestID correlates messages belonging to one user
	// interaction. Empty for messages outside a dialog.
	DialogRequestID string `json:"dialogRequestId,omitempty"`
}

// Directive is a cloud-to-device instruction.
type Directive struct {
	Header  Header          `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// directiveEnvelope is the wire form of a directive.
type directiveEnvelope struct {
	Directive *Directive `json:"directive"`
}

// Event is a device-to-cloud message.
type Event struct {
	Header  Header `json:"header"`
	Payload any    `json:"payload,omitempty"`
}

// eventEnvelope is the wire form of an event.
type eventEnvelope struct {
	Event *Event `json:"event"`
}

// NewEvent constructs an event with a fresh message ID.
func NewEvent(namespace, name string, payload any) *Event {
	return &Event{
		Header: Header{
			Namespace: namespace,
			Name:      name,
			MessageID: uuid.NewString(),
		},
		Payload: payload,
	}
}

// ParseDirective decodes a directive envelope.
func ParseDirective(data []byte) (*Directive, error) {
	var env directiveEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	if env.Directive == nil || env.Directive.Header.Name == "" {
		return nil, ErrMalformedDirective
	}
	return env.Directive, nil
}

// Encode serializes the event envelope for the wire.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(eventEnvelope{Event: e})
}

// contentIDPrefix marks attachment references in directive payloads.
const contentIDPrefix = "cid:"

// ContentID extracts the attachment content ID from a payload URL of the
// form "cid:<id>". It returns "" when the URL references remote content
// instead of an attachment.
func ContentID(url string) string {
	if strings.HasPrefix(url, contentIDPrefix) {
		return url[len(contentIDPrefix):]
	}
	return ""
}

// Attachment frames carry streamed binary content for an attachment ID.
// Layout: a big-endian uint16 ID length, the ID bytes, then the chunk. A
// frame with an empty chunk marks end-of-stream for that ID.

// EncodeFrame builds an attachment frame.
func EncodeFrame(id string, chunk []byte) []byte {
	frame := make([]byte, 2+len(id)+len(chunk))
	binary.BigEndian.PutUint16(frame, uint16(len(id)))
	copy(frame[2:], id)
	copy(frame[2+len(id):], chunk)
	return frame
}

// DecodeFrame splits an attachment frame into its ID and chunk. The chunk
// aliases the input.
func DecodeFrame(frame []byte) (id string, chunk []byte, err error) {
	if len(frame) < 2 {
		return "", nil, ErrMalformedFrame
	}
	idLen := int(binary.BigEndian.Uint16(frame))
	if idLen == 0 || len(frame) < 2+idLen {
		return "", nil, ErrMalformedFrame
	}
	return string(frame[2 : 2+idLen]), frame[2+idLen:], nil
}
