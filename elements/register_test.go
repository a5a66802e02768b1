package elements

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avfoundry/go-streamline/registry"
)

func TestRegisterCoreElements(t *testing.T) {
	r := registry.New(afero.NewMemMapFs())
	require.NoError(t, Register(r))

	for _, name := range []string{"fakesrc", "fakesink", "identity", "queue"} {
		f := r.Find(name)
		require.NotNil(t, f, "factory %s", name)
		ep, err := r.Make(name, name+"_0")
		require.NoError(t, err)
		assert.Equal(t, name+"_0", ep.Element().Name())
	}

	q, err := r.Make("queue", "q0")
	require.NoError(t, err)
	assert.True(t, q.Element().Decoupled(), "queue instances are decoupled")

	assert.Error(t, Register(r), "double registration is rejected")
}
