package persistence

import "fmt"

// ChecksumMismatchError indicates an artifact whose content does not
// match its recorded CRC32.
type ChecksumMismatchError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("checksum mismatch for %s: expected=%08x, actual=%08x", e.Name, e.Expected, e.Actual)
	}

	return fmt.Sprintf("checksum mismatch: expected=%08x, actual=%08x", e.Expected, e.Actual)
}

// Unwrap lets callers match the corruption class with errors.Is.
func (e *ChecksumMismatchError) Unwrap() error {
	return ErrCorrupt
}
