package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := SignJWT("s3cret", 42, "agent", time.Hour)
	require.NoError(t, err)

	c, err := ParseJWT("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.UserID)
	assert.Equal(t, "agent", c.Role)

	_, err = ParseJWT("other", tok)
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	tok, err := SignJWT("s3cret", 1, "admin", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT("s3cret", tok)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	HashCost = 4
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "hunter22"))
	assert.False(t, CheckPassword(h, "hunter23"))
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{"status_id": {"3"}, "bad": {"x"}}
	assert.Equal(t, int64(3), QueryInt64(q, "status_id", 0))
	assert.Equal(t, int64(9), QueryInt64(q, "bad", 9))
	assert.Equal(t, int64(0), QueryInt64(q, "missing", 0))

	id, ok := PathID("12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
	_, ok = PathID("-1")
	assert.False(t, ok)
	_, ok = PathID("abc")
	assert.False(t, ok)
}
