package ratelimits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainAndRefill(t *testing.T) {
	container := NewBucketContainer()

	for i := 0; i < BUCKET_INITIAL_FILL; i++ {
		assert.NoError(t, container.Drain(1, "u1"))
	}
	assert.Equal(t, ErrNoKeysLeft, container.Drain(1, "u1"))
	assert.Equal(t, int8(0), container.Get("u1"))
	assert.Equal(t, int8(BUCKET_INITIAL_FILL), container.Get("u2"))

	container.Refill()
	assert.Equal(t, int8(DROP_SIZE), container.Get("u1"))
	assert.NoError(t, container.Drain(1, "u1"))

	for i := 0; i < BUCKET_INITIAL_FILL; i++ {
		container.Refill()
	}
	assert.Equal(t, int8(BUCKET_INITIAL_FILL), container.Get("u1"))
}
