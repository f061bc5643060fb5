package spank

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/gospank/internal/spankapi"
	"github.com/felixgeelhaar/gospank/internal/spankapi/spankapitest"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nul byte",
			err:  &NulByteError{Value: "a\x00b"},
			want: `string "a\x00b" cannot be converted to a C string`,
		},
		{
			name: "env exists",
			err:  &EnvExistsError{Name: "HOME"},
			want: "environment variable HOME exists and overwrite was not set",
		},
		{
			name: "id not found",
			err:  &IDNotFoundError{ID: 7},
			want: "could not find id 7",
		},
		{
			name: "pid not found",
			err:  &PIDNotFoundError{PID: 1234},
			want: "could not find pid 1234",
		},
		{
			name: "invalid utf-8",
			err:  &UTF8Error{Value: "bro�ken"},
			want: "cannot parse \"bro�ken\" as UTF-8",
		},
		{
			name: "overflow",
			err:  &OverflowError{Count: 5000000000},
			want: "count 5000000000 overflows the native argument range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAPIErrorRendersThroughHost(t *testing.T) {
	host := spankapitest.NewHost(spankapi.CtxLocal)
	err := newAPIError(host, "spank_getenv", spankapi.ErrNoSpace)

	assert.Equal(t, "error calling SPANK API function spank_getenv: Buffer too small", err.Error())
	assert.Equal(t, spankapi.ErrNoSpace, err.Code)
}

func TestAPICode(t *testing.T) {
	host := spankapitest.NewHost(spankapi.CtxLocal)

	code, ok := APICode(newAPIError(host, "spank_setenv", spankapi.ErrBadArg))
	require.True(t, ok)
	assert.Equal(t, spankapi.ErrBadArg, code)

	// Wrapped errors still expose the code.
	wrapped := fmt.Errorf("configuring job: %w", newAPIError(host, "spank_setenv", spankapi.ErrNotRemote))
	code, ok = APICode(wrapped)
	require.True(t, ok)
	assert.Equal(t, spankapi.ErrNotRemote, code)

	_, ok = APICode(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsEnvExists(&EnvExistsError{Name: "X"}))
	assert.True(t, IsEnvExists(fmt.Errorf("setting env: %w", &EnvExistsError{Name: "X"})))
	assert.False(t, IsEnvExists(fmt.Errorf("plain")))

	assert.True(t, IsNotFound(&IDNotFoundError{ID: 1}))
	assert.True(t, IsNotFound(&PIDNotFoundError{PID: 2}))
	assert.False(t, IsNotFound(&EnvExistsError{Name: "X"}))
}
