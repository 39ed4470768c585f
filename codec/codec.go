// Package codec centralizes metadata payload encoding.
//
// Persisted artifacts are self-describing: they store the codec name in
// their header, and readers resolve it through ByName. Changing codecs is
// therefore a compatibility boundary for previously persisted bytes.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	default:
		return nil, false
	}
}
