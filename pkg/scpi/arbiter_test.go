package scpi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	scpiruntime "ridengateway/pkg/scpi/runtime"
)

func TestArbiterClaim(t *testing.T) {
	assert := assert.New(t)
	a := NewArbiter()

	assert.False(a.Held())
	assert.NoError(a.Claim("raw:1", func() {}, true))
	assert.Equal("raw:1", a.Owner())

	err := a.Claim("raw:2", func() {}, true)
	assert.Equal(scpiruntime.ErrControlHeld, err)
	assert.Equal("raw:1", a.Owner())

	// Re-claiming under the same name refreshes the holder.
	assert.NoError(a.Claim("raw:1", func() {}, true))
}

func TestArbiterPreempt(t *testing.T) {
	assert := assert.New(t)
	a := NewArbiter()

	evicted := false
	assert.NoError(a.Claim("raw:1", func() { evicted = true }, true))

	assert.NoError(a.Preempt("vxi:1", func() {}, false))
	assert.True(evicted)
	assert.Equal("vxi:1", a.Owner())

	// A link in place refuses further takeover.
	err := a.Preempt("vxi:2", func() {}, false)
	assert.Equal(scpiruntime.ErrControlHeld, err)
	err = a.Claim("raw:2", func() {}, true)
	assert.Equal(scpiruntime.ErrControlHeld, err)
}

func TestArbiterRelease(t *testing.T) {
	assert := assert.New(t)
	a := NewArbiter()

	assert.NoError(a.Claim("raw:1", func() {}, true))
	a.Release("someone-else")
	assert.Equal("raw:1", a.Owner())

	a.Release("raw:1")
	assert.False(a.Held())
	assert.NoError(a.Claim("raw:2", func() {}, true))
}
