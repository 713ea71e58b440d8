package ebay

import (
	"strings"

	"github.com/google/uuid"
)

// NewSKU generates a caller-supplied inventory key: "SKU-" plus the first
// eight characters of a random UUID, uppercased. Uniqueness is probabilistic
// and not re-checked against existing inventory; a collision overwrites the
// remote item, which is accepted behavior.
func NewSKU() string {
	return "SKU-" + strings.ToUpper(uuid.NewString()[:8])
}
