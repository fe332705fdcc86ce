package canonical

import (
	"bytes"
	"encoding/json"

	"channels-core/internal/common/errors"
)

// Encoder turns structured data into the exact string that is signed and
// sent alongside an authorization. Any replacement must be deterministic:
// the same value always yields the same bytes.
type Encoder func(v interface{}) (string, error)

// JSON is the default Encoder. It produces compact JSON with object keys
// sorted at every depth, numbers kept as written and HTML characters left
// unescaped. Values that are already JSON (json.RawMessage, []byte) are
// re-canonicalized rather than quoted.
func JSON(v interface{}) (string, error) {
	var raw []byte
	switch val := v.(type) {
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", errors.ValidationErrorf("custom data cannot be encoded as JSON: %v", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return "", errors.ValidationErrorf("custom data is not valid JSON: %v", err)
	}
	if dec.More() {
		return "", errors.ValidationError("custom data contains trailing JSON values")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json writes map keys in sorted order
	if err := enc.Encode(generic); err != nil {
		return "", errors.ValidationErrorf("custom data cannot be encoded as JSON: %v", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
