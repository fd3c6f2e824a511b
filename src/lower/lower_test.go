package lower_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/lower"
	"lowerc/src/rc"
	"lowerc/src/textir"
	"lowerc/src/util"
)

func compileToTarget(t *testing.T, src string) string {
	t.Helper()
	m, err := textir.Parse("t.lir", src)
	require.NoError(t, err)
	annotated, err := rc.Annotate(m, util.Options{Threads: 1})
	require.NoError(t, err)
	target, err := lower.LowerModule(annotated)
	require.NoError(t, err)
	return target.String()
}

func TestLowerIdentityFunction(t *testing.T) {
	out := compileToTarget(t, `(module "identity"
  (define id ((x Number)) () Number x))`)
	assert.Contains(t, out, "id.entry")
	assert.Contains(t, out, "id.drop")
}

func TestLowerThunkGeneratesThreeEntryFunctions(t *testing.T) {
	out := compileToTarget(t, `(module "thunk"
  (define answer () () Number (number 42.0)))`)
	assert.True(t, strings.Contains(out, "answer.thunk.initial") && strings.Contains(out, "answer.thunk.locked") && strings.Contains(out, "answer.thunk.normal"),
		"expected the initial, locked and normal thunk entry functions in lowered output")
}

func TestLowerRecordConstructionAndElement(t *testing.T) {
	out := compileToTarget(t, `(module "pairs"
  (record Pair (Number Number))
  (define fst ((p Pair)) () Number (element Pair 0 p)))`)
	assert.Contains(t, out, "fst.entry")
}

func TestLowerVariantCase(t *testing.T) {
	out := compileToTarget(t, `(module "variants"
  (record Box (Number))
  (define unwrap ((v Variant)) () Number
    (case v
      (Box b (element Box 0 b))
      (default d (number 0.0)))))`)
	assert.Contains(t, out, "unwrap.entry")
}

func TestLowerClosureApplication(t *testing.T) {
	out := compileToTarget(t, `(module "closures"
  (define add ((x Number) (y Number)) () Number (add x y))
  (define make-adder ((x Number)) () (Number) -> Number
    (letrec (define adder ((y Number)) ((x Number)) Number (apply (apply add x) y))
      adder)))`)
	assert.Contains(t, out, "make-adder.entry")
	assert.Contains(t, out, "adder")
}

func TestLowerForeignDeclarationBuildsShimClosure(t *testing.T) {
	out := compileToTarget(t, `(module "ffi"
  (foreign-declare puts ByteString Number)
  (define caller ((s ByteString)) () Number (apply puts s)))`)
	assert.Contains(t, out, "puts.entry")
}

func TestLowerUnboundVariableErrors(t *testing.T) {
	m, err := textir.Parse("t.lir", `(module "bad"
  (define f () () Number ghost))`)
	require.NoError(t, err)
	annotated, err := rc.Annotate(m, util.Options{Threads: 1})
	require.NoError(t, err)
	_, err = lower.LowerModule(annotated)
	require.Error(t, err)
}
