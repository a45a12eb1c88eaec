package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Profile is the snapshot of the authenticated user returned by the login
// endpoint. Its fields are owned by the server; numbers are kept as
// json.Number so identifiers round-trip without float conversion.
type Profile map[string]any

// ParseProfile decodes a JSON object into a Profile.
func ParseProfile(data []byte) (Profile, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("profile is not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("trailing data after profile")
	}
	return p, nil
}

// ID returns the "id" field rendered as a string, or "" when absent.
func (p Profile) ID() string {
	v, ok := p["id"]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// DisplayName returns the first non-empty of name, username, email and id.
func (p Profile) DisplayName() string {
	for _, key := range []string{"name", "username", "email"} {
		if s, ok := p[key].(string); ok && s != "" {
			return s
		}
	}
	return p.ID()
}
