package crcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCrc16sum(t *testing.T) {
	assert := assert.New(t)

	// Read holding registers request, reference frame ends C4 0B.
	assert.Equal(uint16(0xC40B), CheckCrc16sum([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x02}))
}

func TestCheckCrc16sumEmpty(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint16(0xFFFF), CheckCrc16sum(nil))
}
