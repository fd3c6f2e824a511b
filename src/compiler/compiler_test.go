package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/util"
)

const identityModule = `(module "identity"
  (define id ((x Number)) () Number x))`

func TestCompileLowersToTargetIR(t *testing.T) {
	res, err := Compile("identity.lir", identityModule, util.Options{Threads: 1})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.CacheHit)
	assert.Contains(t, res.TargetIR, "id")
}

func TestCompileDumpIRReturnsSourceText(t *testing.T) {
	res, err := Compile("identity.lir", identityModule, util.Options{Threads: 1, DumpIR: true})
	require.NoError(t, err)
	assert.Contains(t, res.TargetIR, `(module "identity"`)
	assert.Contains(t, res.TargetIR, "(define id")
}

func TestCompileDumpRCInsertsDropMarker(t *testing.T) {
	res, err := Compile("identity.lir", identityModule, util.Options{Threads: 1, DumpRC: true})
	require.NoError(t, err)
	assert.Contains(t, res.TargetIR, `(module "identity"`)
	// id never refers to itself, so annotation drops its self name.
	assert.Contains(t, res.TargetIR, "(drop id")
}

func TestCompileParseErrorIsWrapped(t *testing.T) {
	_, err := Compile("broken.lir", `(module "broken"`, util.Options{Threads: 1})
	require.Error(t, err)
}

func TestCompileCachesSecondRunAsHit(t *testing.T) {
	dir := t.TempDir()
	opt := util.Options{Threads: 1, CacheDir: dir}

	first, err := Compile("identity.lir", identityModule, opt)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := Compile("identity.lir", identityModule, opt)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.TargetIR, second.TargetIR)
}

func TestCompileNoCacheBypassesStoredEntry(t *testing.T) {
	dir := t.TempDir()
	opt := util.Options{Threads: 1, CacheDir: dir}

	_, err := Compile("identity.lir", identityModule, opt)
	require.NoError(t, err)

	opt.NoCache = true
	res, err := Compile("identity.lir", identityModule, opt)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
}
