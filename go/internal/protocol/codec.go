package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned when a payload is not a valid envelope.
var ErrMalformedMessage = errors.New("malformed message")

// Encode serializes an intent as a typed envelope.
func Encode(intent Intent) ([]byte, error) {
	if intent == nil {
		return nil, fmt.Errorf("encode intent: nil intent")
	}

	body, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("marshal intent %s: %w", intent.IntentType(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("intent %s is not an object: %w", intent.IntentType(), err)
	}

	typ, err := json.Marshal(intent.IntentType())
	if err != nil {
		return nil, err
	}
	fields["type"] = typ

	return json.Marshal(fields)
}

// Decode parses a server push into its typed message.
// Types the client does not know are returned as Unknown.
func Decode(data []byte) (ServerMessage, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}

	switch envelope.Type {
	case MessageTypeRoomListUpdate:
		var msg RoomListUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, envelope.Type, err)
		}
		return msg, nil

	case MessageTypeGameStateUpdate:
		var msg GameStateUpdate
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, envelope.Type, err)
		}
		return msg, nil

	case MessageTypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, envelope.Type, err)
		}
		return msg, nil

	case MessageTypeWelcome:
		var msg WelcomeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, envelope.Type, err)
		}
		return msg, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Type: envelope.Type, Raw: raw}, nil
	}
}
