package protocol

import "encoding/json"

// Key names a keyboard key using the DOM KeyboardEvent.code vocabulary.
type Key string

// Keys the engine tracks. Any other name is accepted on the wire and
// ignored by the engine.
const (
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeySpace      Key = "Space"
)

// TrackedKeys lists the recognized keys in a stable order.
var TrackedKeys = []Key{KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight, KeySpace}

// Recognized reports whether the engine tracks k.
func (k Key) Recognized() bool {
	switch k {
	case KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight, KeySpace:
		return true
	}
	return false
}

// KeyAction is the direction of a key transition.
type KeyAction uint8

const (
	KeyUp KeyAction = iota
	KeyDown
)

func (a KeyAction) String() string {
	if a == KeyDown {
		return "down"
	}
	return "up"
}

// MarshalJSON encodes the action as "up" or "down".
func (a KeyAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts "down"; every other string means up.
func (a *KeyAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "down" {
		*a = KeyDown
	} else {
		*a = KeyUp
	}
	return nil
}
