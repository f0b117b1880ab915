package event

import (
	apperrors "chat-notify/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// WireVersion is the payload version this service understands. Payloads
// without a "v" field are treated as version 1 for compatibility with the
// original triggers.
const WireVersion = 1

var validate = validator.New()

type envelope struct {
	Version int    `json:"v"`
	Kind    string `json:"kind"`
}

// Decode parses one raw notification payload into a DomainEvent.
//
// Unknown kinds return ErrUnknownEventKind and future versions return
// ErrUnsupportedVersion; callers skip those without treating them as faults,
// so the chat server can evolve its triggers ahead of this service.
func Decode(payload []byte) (DomainEvent, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	if env.Version != 0 && env.Version != WireVersion {
		return nil, fmt.Errorf("%w: v%d", apperrors.ErrUnsupportedVersion, env.Version)
	}

	switch env.Kind {
	case KindChatCreated:
		return decodeInto[ChatCreated](payload)
	case KindChatUpdated:
		return decodeInto[ChatUpdated](payload)
	case KindMessageCreated:
		return decodeInto[MessageCreated](payload)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEventKind, env.Kind)
	}
}

func decodeInto[E DomainEvent](payload []byte) (DomainEvent, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return e, nil
}

// Encode produces the wire form of an event, the same shape the database
// triggers emit. The service itself only decodes; Encode exists for tests
// and tooling.
func Encode(e DomainEvent) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["v"] = WireVersion
	fields["kind"] = e.Kind()
	return json.Marshal(fields)
}
