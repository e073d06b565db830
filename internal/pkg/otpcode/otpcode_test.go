package otpcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Length(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		for i := 0; i < 50; i++ {
			code, err := New(length)
			require.NoError(t, err)
			assert.Len(t, code, length)
			for _, c := range code {
				assert.True(t, c >= '0' && c <= '9', "non-digit in %q", code)
			}
		}
	}
}

func TestNew_InvalidLength(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}

func TestNew_NotConstant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := New(6)
		require.NoError(t, err)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}
