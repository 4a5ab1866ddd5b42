package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a node identifier as it appeared on the wire.
//
// IDs are comparable and can be used as map keys; two IDs are equal only when
// their raw text and kind (string or number) match.
type ID struct {
	raw     string
	numeric bool
}

// StringID returns an ID for a string identifier.
func StringID(s string) ID { return ID{raw: s} }

// NumberID returns an ID for a numeric identifier.
func NumberID(n float64) ID {
	return ID{raw: strconv.FormatFloat(n, 'f', -1, 64), numeric: true}
}

// String returns the raw identifier text.
func (id ID) String() string { return id.raw }

// Normalized returns the trimmed string form used for lookups.
func (id ID) Normalized() string { return strings.TrimSpace(id.raw) }

// IsZero reports whether the ID is the empty string id.
func (id ID) IsZero() bool { return id.raw == "" && !id.numeric }

// IsNumeric reports whether the ID was a JSON number.
func (id ID) IsNumeric() bool { return id.numeric }

// MarshalJSON writes numeric ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid id %s: must be a string or number", data)
		}
		*id = NumberID(n)
		return nil
	}
}

// Endpoint is one end of a link. Upstream renderers replace bare ids with the
// node objects themselves, so both shapes are accepted.
type Endpoint struct {
	ID  ID
	Ref bool // given as a node-like object
}

// At returns a bare-id endpoint.
func At(id ID) Endpoint { return Endpoint{ID: id} }

// MarshalJSON writes object endpoints back as {"id": ...}.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	if e.Ref {
		return json.Marshal(struct {
			ID ID `json:"id"`
		}{e.ID})
	}
	return e.ID.MarshalJSON()
}

// UnmarshalJSON accepts a bare id or an object with an "id" field.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*e = Endpoint{ID: obj.ID, Ref: true}
		return nil
	}
	var id ID
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	*e = Endpoint{ID: id}
	return nil
}
