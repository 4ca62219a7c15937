package model

import (
	"bytes"
	"encoding/json"
)

// unmarshalStrict decodes a staged patch into its typed partial, rejecting
// unknown fields so malformed proposals fail at staging time instead of
// surfacing at approval.
func unmarshalStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
