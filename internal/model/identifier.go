package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ShortIdentifierLength is the length of the abbreviated form some sources
// store instead of the full 24-character object id.
const ShortIdentifierLength = 8

// Identifier is an order-document id. The same tax category can be referenced
// by its full id in one place and by a short suffix of it in another, so
// comparisons between ids should go through MatchesSuffix.
type Identifier string

// UnmarshalJSON accepts a plain string, a number or an extended-JSON
// object id ({"$oid": "..."}).
func (id *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(strings.TrimSpace(s))
		return nil
	case '{':
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &oid); err != nil {
			return err
		}
		*id = Identifier(strings.TrimSpace(oid.OID))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported identifier value %s", string(data))
		}
		*id = Identifier(n.String())
		return nil
	}
}

func (id Identifier) String() string {
	return string(id)
}

func (id Identifier) IsZero() bool {
	return id == ""
}

// Short returns the trailing ShortIdentifierLength characters of the id.
func (id Identifier) Short() string {
	if len(id) <= ShortIdentifierLength {
		return string(id)
	}
	return string(id[len(id)-ShortIdentifierLength:])
}

// MatchesSuffix reports whether both ids refer to the same entity: they are
// equal, or one is a suffix of the other.
func (id Identifier) MatchesSuffix(other Identifier) bool {
	if id == "" || other == "" {
		return false
	}
	if id == other {
		return true
	}
	a, b := strings.ToLower(string(id)), strings.ToLower(string(other))
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

// Longer returns whichever of the two ids carries more characters.
func (id Identifier) Longer(other Identifier) Identifier {
	if len(other) > len(id) {
		return other
	}
	return id
}
