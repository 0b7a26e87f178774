package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
	assert.True(t, logger.Core().Enabled(-1))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestOr(t *testing.T) {
	assert.NotNil(t, Or(nil).Logger)

	logger := NewDefault()
	assert.Same(t, logger, Or(logger))
}

func TestComponent(t *testing.T) {
	child := NewNop().Component("queue")
	assert.NotNil(t, child.Logger)
}
