package vxi11

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortCycleAdvanceAndWrap(t *testing.T) {
	assert := assert.New(t)
	cycle := newPortCycle(9010, 9012)

	assert.Equal(uint32(9010), cycle.Current())
	assert.Equal(uint32(9011), cycle.Advance())
	assert.Equal(uint32(9012), cycle.Advance())
	assert.Equal(uint32(9010), cycle.Advance())
	assert.False(cycle.Fixed())
}

func TestPortCycleSinglePort(t *testing.T) {
	assert := assert.New(t)
	cycle := newPortCycle(9010, 9010)

	assert.True(cycle.Fixed())
	assert.Equal(uint32(9010), cycle.Advance())
	assert.Equal(uint32(9010), cycle.Advance())
}

func TestPortCycleInvertedInterval(t *testing.T) {
	assert := assert.New(t)
	cycle := newPortCycle(9020, 9010)

	assert.True(cycle.Fixed())
	assert.Equal(uint32(9020), cycle.Current())
	assert.Equal(uint32(9020), cycle.Advance())
}
