package ebay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSKU(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sku := NewSKU()
		assert.Regexp(t, skuPattern, sku)
		assert.False(t, seen[sku], "duplicate SKU %s", sku)
		seen[sku] = true
	}
}
