// Package codec converts event payloads and client commands to and from
// protobuf Struct values, so every transport shares one wire shape.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrMalformedCommand = errors.New("malformed command")

// ToStruct converts any JSON-taggable value into a structpb.Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to build struct: %w", err)
	}
	return s, nil
}

// MarshalJSON renders v as protojson.
func MarshalJSON(v any) (string, error) {
	s, err := ToStruct(v)
	if err != nil {
		return "", err
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json: %w", err)
	}
	return string(b), nil
}

// Envelope builds the {type, matchId, payload} frame sent to clients.
func Envelope(kind, matchID string, payload any) (*structpb.Struct, error) {
	body, err := ToStruct(payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]*structpb.Value{
		"type":    structpb.NewStringValue(kind),
		"payload": structpb.NewStructValue(body),
	}
	if matchID != "" {
		fields["matchId"] = structpb.NewStringValue(matchID)
	}
	return &structpb.Struct{Fields: fields}, nil
}

// EncodeEnvelope renders an envelope as JSON text.
func EncodeEnvelope(kind, matchID string, payload any) ([]byte, error) {
	env, err := Envelope(kind, matchID, payload)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(env)
}

// EncodeEnvelopeBinary renders an envelope in protobuf wire format.
func EncodeEnvelopeBinary(kind, matchID string, payload any) ([]byte, error) {
	env, err := Envelope(kind, matchID, payload)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(env)
}

// Command is an inbound client message.
type Command struct {
	Type    string
	MatchID string
	Payload *structpb.Struct
}

// DecodeCommand parses a JSON command frame.
func DecodeCommand(data []byte) (Command, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return commandFromStruct(&s)
}

// DecodeCommandBinary parses a protobuf command frame.
func DecodeCommandBinary(data []byte) (Command, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return commandFromStruct(&s)
}

// DecodeArgs parses a bare JSON object as the payload of a command of the
// given type, as RPC transports send it. An empty body is an empty payload.
func DecodeArgs(typ string, data []byte) (Command, error) {
	var s structpb.Struct
	if len(data) > 0 {
		if err := protojson.Unmarshal(data, &s); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
		}
	}
	if s.Fields == nil {
		s.Fields = map[string]*structpb.Value{}
	}
	return Command{Type: typ, MatchID: s.Fields["matchId"].GetStringValue(), Payload: &s}, nil
}

func commandFromStruct(s *structpb.Struct) (Command, error) {
	f := s.GetFields()
	cmd := Command{
		Type:    f["type"].GetStringValue(),
		MatchID: f["matchId"].GetStringValue(),
		Payload: f["payload"].GetStructValue(),
	}
	if cmd.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrMalformedCommand)
	}
	if cmd.Payload == nil {
		cmd.Payload = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return cmd, nil
}

// String returns a string field of the payload.
func (c Command) String(key string) string {
	return c.Payload.GetFields()[key].GetStringValue()
}

// Int returns an integral numeric field of the payload.
func (c Command) Int(key string) (int64, error) {
	v, ok := c.Payload.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedCommand, key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformedCommand, key)
	}
	return int64(n.NumberValue), nil
}

// Placements decodes the "ships" list of a placement command.
func (c Command) Placements() ([]domain.Placement, error) {
	v, ok := c.Payload.GetFields()["ships"]
	if !ok {
		return nil, fmt.Errorf("%w: missing ships", ErrMalformedCommand)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	var out []domain.Placement
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: ships: %v", ErrMalformedCommand, err)
	}
	return out, nil
}
