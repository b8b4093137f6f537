// Package ids generates identifiers for domain records.
package ids

import "github.com/google/uuid"

// New returns a new random identifier.
func New() string {
	return uuid.NewString()
}
