package driver

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gitlab.com/blackboxtests/bbt"
)

// ElementState is what state.js reports about an element
type ElementState struct {
	Tag      string `json:"tag"`
	Enabled  bool   `json:"enabled"`
	Selected bool   `json:"selected"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToPoint converts the {x, y} object returned by location.js and center.js
func ToPoint(v interface{}) (bbt.Point, error) {
	p := point{}
	if err := remarshal(v, &p); err != nil {
		return bbt.Point{}, err
	}
	return bbt.Point{X: int(p.X), Y: int(p.Y)}, nil
}

// ToFloatPoint keeps sub pixel precision for input events
func ToFloatPoint(v interface{}) (float64, float64, error) {
	p := point{}
	if err := remarshal(v, &p); err != nil {
		return 0, 0, err
	}
	return p.X, p.Y, nil
}

// ToState converts the object returned by state.js
func ToState(v interface{}) (*ElementState, error) {
	s := &ElementState{}
	if err := remarshal(v, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ToBool converts a script result that should be a boolean
func ToBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("expected boolean script result got %T", v)
	}
	return b, nil
}

// ToOptionalString converts a script result that is a string or null
func ToOptionalString(v interface{}) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &s, nil
	}
	return nil, errors.Errorf("expected string script result got %T", v)
}

// ToString converts a script result that should be a string, null reads as empty
func ToString(v interface{}) (string, error) {
	s, err := ToOptionalString(v)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// script results arrive as generic maps, a round trip through json is the least
// surprising way to read them into a struct
func remarshal(v interface{}, out interface{}) error {
	if raw, ok := v.(json.RawMessage); ok {
		return errors.Wrap(json.Unmarshal(raw, out), "failed to decode script result")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode script result")
	}
	return errors.Wrap(json.Unmarshal(data, out), "failed to decode script result")
}
