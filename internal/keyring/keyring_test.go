package keyring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zkr "github.com/zalando/go-keyring"
)

func TestEnsureGeneratesOnce(t *testing.T) {
	zkr.MockInit()

	first, err := Ensure()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := Ensure()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := Get()
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestRotateReplacesSecret(t *testing.T) {
	zkr.MockInit()

	old, err := Ensure()
	require.NoError(t, err)
	fresh, err := Rotate()
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	got, err := Get()
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestDelete(t *testing.T) {
	zkr.MockInit()

	require.NoError(t, Set("abc"))
	require.NoError(t, Delete())
	_, err := Get()
	assert.True(t, errors.Is(err, zkr.ErrNotFound))
}

func TestDisabledByEnv(t *testing.T) {
	zkr.MockInit()
	t.Setenv("PROMPTPULSE_KEYRING_DISABLED", "1")

	assert.False(t, Available())
	_, err := Ensure()
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestResolvePrefersEnv(t *testing.T) {
	zkr.MockInit()
	t.Setenv("PROMPTPULSE_API_SECRET", "from-env")

	got, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	t.Setenv("PROMPTPULSE_API_SECRET", "")
	got, err = Resolve()
	require.NoError(t, err)
	assert.Len(t, got, 64)
}
