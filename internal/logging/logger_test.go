package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, dev := range []bool{true, false} {
		logger, err := New(dev)
		require.NoError(t, err)
		require.NotNil(t, logger)
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@x.com", MaskEmail("alice@x.com"))
	assert.Equal(t, "b***@example.org", MaskEmail("b@example.org"))
	assert.Equal(t, "****", MaskEmail("no-at-sign"))
	assert.Equal(t, "****", MaskEmail("@x.com"))
}
