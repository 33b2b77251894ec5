package emojis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	assert.Equal(t, "🥇", Rank(1))
	assert.Equal(t, "🥉", Rank(3))
	assert.Equal(t, "4⃣", Rank(4))
	assert.Equal(t, "🔟", Rank(10))
	assert.Equal(t, "#11", Rank(11))
	assert.Equal(t, "#0", Rank(0))
}

func TestFrom(t *testing.T) {
	assert.Equal(t, "7⃣", From("7"))
	assert.Empty(t, From("x"))
}
