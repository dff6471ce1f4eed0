package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocal_SetAndGet(t *testing.T) {
	local := NewLocal(0)
	defer local.Stop()

	local.Set("k", "v", time.Minute)

	v, ok := local.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = local.Get("missing")
	assert.False(t, ok)
}

func TestLocal_Expiry(t *testing.T) {
	local := NewLocal(0)
	defer local.Stop()

	local.Set("k", "v", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	_, ok := local.Get("k")
	assert.False(t, ok)
}

func TestLocal_Delete(t *testing.T) {
	local := NewLocal(0)
	defer local.Stop()

	local.Set("k", "v", time.Minute)
	local.Delete("k")

	_, ok := local.Get("k")
	assert.False(t, ok)
}

func TestLocal_JanitorPurges(t *testing.T) {
	local := NewLocal(10 * time.Millisecond)
	defer local.Stop()

	local.Set("k", "v", 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return local.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestLocal_StopIsIdempotent(t *testing.T) {
	local := NewLocal(time.Minute)
	local.Stop()
	local.Stop()
}
