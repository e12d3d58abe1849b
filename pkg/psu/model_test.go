package psu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeModel(t *testing.T) {
	assert := assert.New(t)

	model, err := DecodeModel(60062)
	assert.NoError(err)
	assert.Equal("RD6006", model.Type)
	assert.Equal(1000.0, model.Scale.Current)
	assert.Equal(100.0, model.Scale.Voltage)
	assert.False(model.CurrentScaleFromRange)

	model, err = DecodeModel(60065)
	assert.NoError(err)
	assert.Equal("RD6006P", model.Type)
	assert.Equal(Scale{Voltage: 1000, Current: 10000, Power: 1000, VoltageIn: 100}, model.Scale)

	model, err = DecodeModel(60121)
	assert.NoError(err)
	assert.Equal("RD6012", model.Type)
	assert.Equal(100.0, model.Scale.Current)

	model, err = DecodeModel(60125)
	assert.NoError(err)
	assert.Equal("RD6012P", model.Type)
	assert.True(model.CurrentScaleFromRange)
	assert.Equal(1000.0, model.Scale.Voltage)
	assert.Equal(1000.0, model.Scale.Power)

	model, err = DecodeModel(60181)
	assert.NoError(err)
	assert.Equal("RD6018", model.Type)

	model, err = DecodeModel(60301)
	assert.NoError(err)
	assert.Equal("RD6030", model.Type)

	model, err = DecodeModel(60245)
	assert.NoError(err)
	assert.Equal("RD6024", model.Type)

	_, err = DecodeModel(12345)
	assert.Error(err)
}

func TestCurrentScaleForRange(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(10000.0, CurrentScaleForRange(0))
	assert.Equal(1000.0, CurrentScaleForRange(1))
}

func TestHostname(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("RD6006-00012345", Hostname("RD6006", 12345))
	assert.Equal("RD6018-12345678", Hostname("RD6018", 12345678))
}

func TestFirmwareString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("1.41", FirmwareString(141))
	assert.Equal("1.4", FirmwareString(104))
	assert.Equal("0.9", FirmwareString(9))
}
