package cache

import (
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoggerFallback(t *testing.T) {
	SetLogger(nil)
	assert.Equal(t, logrus.StandardLogger(), GetLogger())

	log := logrus.New()
	log.Out = ioutil.Discard
	SetLogger(log)
	defer SetLogger(nil)
	assert.Equal(t, log, GetLogger())
}

func TestUnsetSingletonsPanic(t *testing.T) {
	assert.False(t, HasRedisClient())
	assert.Panics(t, func() { GetRedisClient() })
	assert.Panics(t, func() { GetRedisCacheCodec() })
	assert.Panics(t, func() { GetStore() })
}
