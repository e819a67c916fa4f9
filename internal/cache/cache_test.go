package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLTableMatchesSpec(t *testing.T) {
	assert.Equal(t, time.Hour, ttlByKind[KindSession])
	assert.Equal(t, time.Hour, ttlByKind[KindJob])
	assert.Equal(t, 24*time.Hour, ttlByKind[KindMetadata])
	assert.Equal(t, 24*time.Hour, ttlByKind[KindScore])
	assert.Equal(t, 5*time.Minute, ttlByKind[KindSearchResult])
	assert.Equal(t, time.Hour, ttlByKind[KindIntent])
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis("not-a-redis-url://::::")
	assert.Error(t, err)
}
