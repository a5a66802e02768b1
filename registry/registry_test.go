package registry

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avfoundry/go-streamline/core"
)

func testFactory(name string, rank int) *Factory {
	return &Factory{
		Name:        name,
		Description: name + " element",
		Rank:        rank,
		New:         func(instanceName string) core.ElementProvider { return core.NewElement(instanceName) },
	}
}

func TestRegisterAndFind(t *testing.T) {
	r := New(afero.NewMemMapFs())
	require.NoError(t, r.Register(testFactory("fakesrc", 10)))
	assert.Error(t, r.Register(testFactory("fakesrc", 10)), "duplicate factory name")
	assert.Error(t, r.Register(&Factory{Name: "broken"}), "factory without constructor")

	f := r.Find("fakesrc")
	require.NotNil(t, f)
	assert.Equal(t, 10, f.Rank)
	assert.Nil(t, r.Find("ghost"))
}

func TestMake(t *testing.T) {
	r := New(afero.NewMemMapFs())
	require.NoError(t, r.Register(testFactory("fakesrc", 0)))

	ep, err := r.Make("fakesrc", "mysrc")
	require.NoError(t, err)
	assert.Equal(t, "mysrc", ep.Element().Name())

	ep, err = r.Make("fakesrc", "")
	require.NoError(t, err)
	assert.Equal(t, "fakesrc0", ep.Element().Name(), "default instance name")

	_, err = r.Make("ghost", "x")
	assert.Error(t, err)
}

func TestRankOrdering(t *testing.T) {
	r := New(afero.NewMemMapFs())
	require.NoError(t, r.Register(testFactory("slow", 1)))
	require.NoError(t, r.Register(testFactory("fast", 100)))
	require.NoError(t, r.Register(testFactory("medium", 50)))

	fs := r.Factories()
	require.Len(t, fs, 3)
	assert.Equal(t, []string{"fast", "medium", "slow"}, []string{fs[0].Name, fs[1].Name, fs[2].Name})

	best := r.FindBest("slow", "medium", "ghost")
	require.NotNil(t, best)
	assert.Equal(t, "medium", best.Name)
	assert.Nil(t, r.FindBest("ghost"))
}

func TestCacheRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs)
	r.cfg = Config{CachePath: "cache.json"}
	require.NoError(t, r.Register(testFactory("fakesrc", 10)))
	require.NoError(t, r.SaveCache())

	exists, err := afero.Exists(fs, "cache.json")
	require.NoError(t, err)
	assert.True(t, exists)

	// A second registry picks up the cached rank override.
	r2 := New(fs)
	r2.cfg = Config{CachePath: "cache.json"}
	require.NoError(t, r2.Register(testFactory("fakesrc", 0)))
	require.NoError(t, r2.LoadCache())
	assert.Equal(t, 10, r2.Find("fakesrc").Rank)
}

func TestCacheFlags(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs)
	r.cfg = Config{CachePath: "cache.json", NoCacheWrite: true}
	require.NoError(t, r.Register(testFactory("fakesrc", 1)))
	require.NoError(t, r.SaveCache())
	exists, _ := afero.Exists(fs, "cache.json")
	assert.False(t, exists, "no-write flag suppresses the cache")

	r.cfg = Config{CachePath: "cache.json", DisableCache: true}
	require.NoError(t, r.LoadCache(), "disabled cache loads nothing, not an error")
}

func TestLoadCacheMissingAndCorrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs)
	r.cfg = Config{CachePath: "cache.json"}
	assert.NoError(t, r.LoadCache(), "missing cache is not an error")

	require.NoError(t, afero.WriteFile(fs, "cache.json", []byte("not json"), 0o644))
	assert.Error(t, r.LoadCache())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(envPluginPath, "/plugins")
	t.Setenv(envCachePath, "/tmp/reg.json")
	t.Setenv(envDisableCache, "1")
	t.Setenv(envNoCacheWrite, "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "/plugins", cfg.PluginPath)
	assert.Equal(t, "/tmp/reg.json", cfg.CachePath)
	assert.True(t, cfg.DisableCache)
	assert.False(t, cfg.NoCacheWrite)

	t.Setenv(envCachePath, "")
	assert.Equal(t, defaultCachePath, ConfigFromEnv().CachePath)
}
