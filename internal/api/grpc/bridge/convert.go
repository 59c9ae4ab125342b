package bridge

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/hub"
)

// errMalformedMessage is returned when a Struct is not a hub envelope.
var errMalformedMessage = errors.New("malformed message")

// ToStruct converts a hub message into its protobuf Struct form.
func ToStruct(msg hub.Message) (*structpb.Struct, error) {
	fields := map[string]any{
		"type": string(msg.Type),
	}

	switch msg.Type {
	case hub.MessageStatus:
		if msg.Status != nil {
			fields["status"] = statusFields(*msg.Status)
		}
	case hub.MessageAlert:
		if msg.Alert != nil {
			fields["alert"] = map[string]any{
				"kind":   msg.Alert.Kind.String(),
				"status": statusFields(msg.Alert.Status),
			}
		}
	case hub.MessageError:
		fields["error"] = msg.Error
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("convert %s message: %w", msg.Type, err)
	}

	return s, nil
}

// statusFields flattens a status into Struct-compatible values.
func statusFields(status alarm.Status) map[string]any {
	return map[string]any{
		"armed":  status.Armed,
		"active": status.Active,
		"temp":   status.Temp,
	}
}

// FromStruct converts a protobuf Struct back into a hub message.
func FromStruct(s *structpb.Struct) (hub.Message, error) {
	fields := s.GetFields()
	msg := hub.Message{
		Type: hub.MessageType(fields["type"].GetStringValue()),
	}

	switch msg.Type {
	case hub.MessageStatus:
		status, err := statusFromValue(fields["status"])
		if err != nil {
			return hub.Message{}, err
		}

		msg.Status = &status
	case hub.MessageAlert:
		alertFields := fields["alert"].GetStructValue().GetFields()

		status, err := statusFromValue(alertFields["status"])
		if err != nil {
			return hub.Message{}, err
		}

		msg.Alert = &alarm.Event{
			Kind:   alarm.Kind(alertFields["kind"].GetStringValue()),
			Status: status,
		}
	case hub.MessageError:
		msg.Error = fields["error"].GetStringValue()
	default:
		return hub.Message{}, fmt.Errorf("%w: unknown type %q", errMalformedMessage, msg.Type)
	}

	return msg, nil
}

// statusFromValue reads a status from a nested Struct value.
func statusFromValue(v *structpb.Value) (alarm.Status, error) {
	fields := v.GetStructValue().GetFields()
	if fields == nil {
		return alarm.Status{}, fmt.Errorf("%w: status is missing", errMalformedMessage)
	}

	return alarm.Status{
		Armed:  fields["armed"].GetBoolValue(),
		Active: fields["active"].GetBoolValue(),
		Temp:   fields["temp"].GetNumberValue(),
	}, nil
}
