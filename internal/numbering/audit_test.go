package numbering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindGaps(t *testing.T) {
	assert.Empty(t, findGaps(nil))
	assert.Empty(t, findGaps([]int64{1}))
	assert.Empty(t, findGaps([]int64{1, 2, 3}))

	gaps := findGaps([]int64{1, 2, 5, 6, 9})
	assert.Equal(t, []Gap{{After: 2, Before: 5}, {After: 6, Before: 9}}, gaps)

	gaps = findGaps([]int64{10, 12})
	assert.Equal(t, []Gap{{After: 10, Before: 12}}, gaps)
}
