package scpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorQueueFifo(t *testing.T) {
	assert := assert.New(t)
	q := NewErrorQueue()

	assert.Equal(CodeNoError, q.Pop())

	q.Push(CodeUndefinedHeader)
	q.Push(CodeDataTypeError)
	assert.Equal(2, q.Count())
	assert.Equal(CodeUndefinedHeader, q.Pop())
	assert.Equal(CodeDataTypeError, q.Pop())
	assert.Equal(CodeNoError, q.Pop())
}

func TestErrorQueueIgnoresNoError(t *testing.T) {
	assert := assert.New(t)
	q := NewErrorQueue()

	q.Push(CodeNoError)
	assert.Equal(0, q.Count())
}

func TestErrorQueueOverflow(t *testing.T) {
	assert := assert.New(t)
	q := NewErrorQueue()

	for i := 0; i < errorQueueDepth; i++ {
		q.Push(CodeUndefinedHeader)
	}
	q.Push(CodeDataTypeError)
	assert.Equal(errorQueueDepth, q.Count())

	for i := 0; i < errorQueueDepth-1; i++ {
		assert.Equal(CodeUndefinedHeader, q.Pop())
	}
	assert.Equal(CodeQueueOverflow, q.Pop())
	assert.Equal(CodeNoError, q.Pop())
}

func TestErrorQueueClear(t *testing.T) {
	assert := assert.New(t)
	q := NewErrorQueue()

	q.Push(CodeCommandError)
	q.Clear()
	assert.Equal(0, q.Count())
	assert.Equal(CodeNoError, q.Pop())
}

func TestCodeResponse(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(`0,"No error"`, CodeNoError.Response())
	assert.Equal(`-350,"Queue overflow"`, CodeQueueOverflow.Response())
	assert.Equal(`-224,"Illegal parameter value"`, CodeIllegalParameterValue.Response())
}
