package textir

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"lowerc/src/source"
)

// TestGoldenFixturesRoundTrip reads the bundled archive of small modules
// under testdata and checks, for every file in it, that parsing and
// re-printing agree: the same convention cmd/go's own tests use to bundle
// many small source trees into one file instead of a directory per case.
func TestGoldenFixturesRoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/golden.txtar")
	require.NoError(t, err)

	archive := txtar.Parse(data)
	require.NotEmpty(t, archive.Files)

	for _, f := range archive.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			m, err := Parse(f.Name, string(f.Data))
			require.NoError(t, err)
			require.NotEmpty(t, m.Name)

			printed := source.Print(m)
			reparsed, err := Parse(f.Name, printed)
			require.NoError(t, err)
			assert.Equal(t, printed, source.Print(reparsed))
		})
	}
}

// TestGoldenFixturesCoverDistinctConstructs sanity-checks that the bundled
// archive actually exercises the constructs its filenames promise, so a
// future edit that empties a file's body out doesn't silently reduce
// coverage to nothing.
func TestGoldenFixturesCoverDistinctConstructs(t *testing.T) {
	data, err := os.ReadFile("testdata/golden.txtar")
	require.NoError(t, err)
	archive := txtar.Parse(data)

	want := map[string]string{
		"record.lir":  "(record",
		"thunk.lir":   "() Number (number",
		"foreign.lir": "foreign-declare",
	}
	for _, f := range archive.Files {
		if needle, ok := want[f.Name]; ok {
			assert.True(t, strings.Contains(string(f.Data), needle), "%s missing expected construct %q", f.Name, needle)
		}
	}
}
