package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhengyp36/crash-ext-tools/internal/backend"
)

func TestApplyDefaults(t *testing.T) {
	o := Apply()
	assert.Equal(t, &Options{
		GuardPrefix:   DefaultGuardPrefix,
		FilePrefix:    DefaultFilePrefix,
		Backend:       BackendGDB,
		GDBCommand:    DefaultGDBCommand,
		ModuleCommand: backend.DefaultModuleCommand,
		CacheSize:     DefaultCacheSize,
		Manifest:      DefaultManifest,
		ExcludeTypes:  []string{},
	}, o)
}

func TestApplyOptions(t *testing.T) {
	o := Apply(
		WithOutDir("out/./include/"),
		WithReplayFile("k.replay.yaml"),
		WithCacheSize(-1),
		WithExcludeTypes(" const struct foo * ", "", "spinlock_t"),
		WithForce(),
	)
	assert.Equal(t, filepath.Clean("out/include"), o.OutDir)
	assert.Equal(t, BackendReplay, o.Backend)
	assert.Equal(t, "k.replay.yaml", o.ReplayFile)
	assert.Zero(t, o.CacheSize)
	assert.Equal(t, []string{"struct foo", "spinlock_t"}, o.ExcludeTypes)
	assert.True(t, o.Force)
}

func TestNormalize(t *testing.T) {
	o := &Options{ReplayFile: "s.yaml", Backend: "  "}
	o.Normalize()
	assert.Equal(t, BackendReplay, o.Backend, "replay inferred from the replay file")
	assert.Equal(t, DefaultGuardPrefix, o.GuardPrefix)
	assert.Equal(t, backend.DefaultModuleCommand, o.ModuleCommand)

	o = &Options{Backend: " GDB "}
	o.Normalize()
	assert.Equal(t, BackendGDB, o.Backend)

	again := *o
	again.Normalize()
	assert.Equal(t, *o, again)
}

func TestOutputPath(t *testing.T) {
	o := Apply()
	assert.Equal(t, filepath.Join("defs", "types.h"), o.OutputPath(filepath.Join("defs", "types.in")))
	assert.Equal(t, "types.h", o.OutputPath("types"))

	o = Apply(WithOutDir("include"))
	assert.Equal(t, filepath.Join("include", "types.h"), o.OutputPath(filepath.Join("defs", "types.in")))
}
