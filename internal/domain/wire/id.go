// Package wire holds small JSON helpers shared by the events API DTOs.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a remote identifier. The API may send it as a JSON number or string;
// it is kept as text and written back as a number when it is numeric.
type ID string

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether no identifier is set.
func (id ID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts 12, "12" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric identifiers as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}
