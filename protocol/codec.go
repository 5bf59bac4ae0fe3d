package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/wippyai/render-worker/errors"
)

type envelope struct {
	Type string `json:"type"`
}

// Encode writes msg as a flat JSON envelope: {"type": ..., fields...}.
func Encode(msg interface{ Type() string }) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProtocol, errors.KindInvalidData, err, "encode "+msg.Type())
	}

	var b bytes.Buffer
	b.WriteString(`{"type":`)
	b.WriteString(strconv.Quote(msg.Type()))
	if len(body) > 2 {
		b.WriteByte(',')
		b.Write(body[1:])
	} else {
		b.WriteByte('}')
	}
	return b.Bytes(), nil
}

// DecodeCommand parses a Controller -> Engine envelope. Unknown types are
// rejected instead of being passed through.
func DecodeCommand(data []byte) (Command, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeInit:
		return decodeCommand[Init](data)
	case TypeStart:
		return Start{}, nil
	case TypeStop:
		return Stop{}, nil
	case TypeResize:
		return decodeCommand[Resize](data)
	case TypeKeyEvent:
		return decodeCommand[KeyEvent](data)
	case TypeMouseMove:
		return decodeCommand[MouseMove](data)
	case TypeMouseButton:
		return decodeCommand[MouseButton](data)
	case TypeSetSpeed:
		return decodeCommand[SetSpeed](data)
	case TypeTerminate:
		return Terminate{}, nil
	}
	return nil, errors.New(errors.PhaseProtocol, errors.KindUnsupported).
		Detail("unknown command type %q", typ).
		Value(typ).
		Build()
}

// DecodeEvent parses an Engine -> Controller envelope.
func DecodeEvent(data []byte) (Event, error) {
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeStatus:
		return decodeEvent[Status](data)
	case TypeInitialized:
		return Initialized{}, nil
	case TypeFPS:
		return decodeEvent[FPS](data)
	case TypeError:
		return decodeEvent[Error](data)
	}
	return nil, errors.New(errors.PhaseProtocol, errors.KindUnsupported).
		Detail("unknown event type %q", typ).
		Value(typ).
		Build()
}

func peekType(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", errors.InvalidData(errors.PhaseProtocol, "decode envelope", err)
	}
	if env.Type == "" {
		return "", errors.InvalidInput(errors.PhaseProtocol, "envelope has no type")
	}
	return env.Type, nil
}

func decodeCommand[T Command](data []byte) (Command, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.InvalidData(errors.PhaseProtocol, "decode "+v.Type(), err)
	}
	return v, nil
}

func decodeEvent[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.InvalidData(errors.PhaseProtocol, "decode "+v.Type(), err)
	}
	return v, nil
}
