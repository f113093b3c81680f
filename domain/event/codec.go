package event

import (
	"encoding/json"
	"fmt"

	"chat-presence/errors"

	"github.com/go-playground/validator/v10"
)

// Envelope is the wire framing shared by inbound and outbound events.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeInbound parses a raw frame into its tagged variant and validates
// required fields. The disconnect kind is transport-internal and is rejected
// here like any other unknown kind.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}

	var (
		evt Inbound
		err error
	)
	switch env.Event {
	case KindRegisterPresence:
		evt, err = decodePayload[RegisterPresence](env.Data)
	case KindJoinRoom:
		evt, err = decodePayload[JoinRoom](env.Data)
	case KindLeaveRoom:
		evt, err = decodePayload[LeaveRoom](env.Data)
	case KindSendMessage:
		evt, err = decodePayload[SendMessage](env.Data)
	case KindTyping, KindStopTyping:
		typing, decodeErr := decodePayload[Typing](env.Data)
		typing.Active = env.Event == KindTyping
		evt, err = typing, decodeErr
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func decodePayload[T any](data []byte) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	if err := validate.Struct(payload); err != nil {
		return payload, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return payload, nil
}

// EncodeOutbound wraps an outbound event in the wire envelope.
func EncodeOutbound(evt Outbound) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: evt.Kind(), Data: data})
}
