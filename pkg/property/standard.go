package property

import (
	"encoding/json"
	"fmt"
)

// Control is one entry of a control-list resource (AllCtrlList,
// ChCtrlList): a controller the device exposes, described by the device
// itself.
type Control struct {
	Title       string  `json:"title"`
	CtrlType    string  `json:"ctrlType"`
	Description string  `json:"description,omitempty"`
	CtrlIndex   []uint8 `json:"ctrlIndex,omitempty"`
	Channel     uint8   `json:"channel,omitempty"`
	Priority    uint8   `json:"priority,omitempty"`
	Default     uint32  `json:"default,omitempty"`
	Transmit    string  `json:"transmit,omitempty"`
	Recognize   string  `json:"recognize,omitempty"`
	NumSigBits  uint8   `json:"numSigBits,omitempty"`
}

// Program is one entry of a ProgramList resource.
type Program struct {
	Title    string   `json:"title"`
	BankPC   []uint8  `json:"bankPC"`
	Category []string `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ParseControlList decodes a control-list body. Devices ship two shapes
// in the wild: a bare JSON array, and an object wrapping the array under
// "ctrlList". Both are accepted.
func ParseControlList(body []byte) ([]Control, error) {
	var controls []Control
	if err := parseList(body, "ctrlList", &controls); err != nil {
		return nil, err
	}
	return controls, nil
}

// ParseProgramList decodes a ProgramList body, accepting both the bare
// array form and the object form wrapping the array under "programList".
func ParseProgramList(body []byte) ([]Program, error) {
	var programs []Program
	if err := parseList(body, "programList", &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// parseList decodes body into out, unwrapping {"<field>": [...]} when the
// body is not a bare array.
func parseList(body []byte, field string, out interface{}) error {
	if len(body) == 0 {
		return ErrEmptyBody
	}

	if err := json.Unmarshal(body, out); err == nil {
		return nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	raw, ok := wrapped[field]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidBody, field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return nil
}
