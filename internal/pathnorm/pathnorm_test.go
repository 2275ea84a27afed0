package pathnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/model"
)

func TestNormalize_RelativeForms(t *testing.T) {
	n := New("/p", false)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain relative", "src/a.c", "src/a.c"},
		{"dot slash prefix", "./src/a.c", "src/a.c"},
		{"backslashes", "src\\a.c", "src/a.c"},
		{"doubled separators", "src//sub///a.c", "src/sub/a.c"},
		{"mixed mess", "./src\\\\sub//a.c", "src/sub/a.c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := n.Normalize(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.CanonicalPath)
			assert.Equal(t, 1.0, res.Confidence)
			assert.False(t, res.ExternalToProject)
			assert.False(t, res.Unresolved)
		})
	}
}

func TestNormalize_AbsoluteUnderRoot(t *testing.T) {
	n := New("/p", false)

	res, err := n.Normalize("/p/src/a.c")
	require.NoError(t, err)
	assert.Equal(t, "src/a.c", res.CanonicalPath)
	assert.Equal(t, 1.0, res.Confidence)
	assert.False(t, res.ExternalToProject)
}

func TestNormalize_ConvergentSpellings(t *testing.T) {
	// three spellings of the same file must land on one canonical string
	n := New("/p", false)

	want := "src/a.c"
	for _, input := range []string{"./src/a.c", "src\\a.c", "/p/src/a.c"} {
		res, err := n.Normalize(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, res.CanonicalPath, "input %q", input)
	}
}

func TestNormalize_AbsoluteOutsideRoot(t *testing.T) {
	n := New("/p", false)

	res, err := n.Normalize("/usr/lib/libc.so")
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib/libc.so", res.CanonicalPath)
	assert.True(t, res.ExternalToProject)
	assert.Equal(t, 0.7, res.Confidence)
}

func TestNormalize_WindowsDrivePaths(t *testing.T) {
	n := New("C:\\work\\proj", false)

	res, err := n.Normalize("C:\\work\\proj\\src\\main.rs")
	require.NoError(t, err)
	assert.Equal(t, "src/main.rs", res.CanonicalPath)
	assert.False(t, res.ExternalToProject)

	res, err = n.Normalize("D:\\other\\lib.rs")
	require.NoError(t, err)
	assert.True(t, res.ExternalToProject)
	assert.Equal(t, "D:/other/lib.rs", res.CanonicalPath)
}

func TestNormalize_CaseInsensitive(t *testing.T) {
	n := New("/p", true)

	a, err := n.Normalize("src/Main.RS")
	require.NoError(t, err)
	b, err := n.Normalize("SRC/main.rs")
	require.NoError(t, err)
	assert.Equal(t, a.CanonicalPath, b.CanonicalPath)
	assert.Equal(t, "src/main.rs", a.CanonicalPath)

	// root matching is case-insensitive too
	res, err := n.Normalize("/P/src/a.c")
	require.NoError(t, err)
	assert.Equal(t, "src/a.c", res.CanonicalPath)
	assert.False(t, res.ExternalToProject)
}

func TestNormalize_CaseSensitiveDefault(t *testing.T) {
	n := New("/p", false)

	a, err := n.Normalize("src/Main.rs")
	require.NoError(t, err)
	b, err := n.Normalize("src/main.rs")
	require.NoError(t, err)
	assert.NotEqual(t, a.CanonicalPath, b.CanonicalPath)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New("/p", false)

	inputs := []string{
		"src/a.c",
		"./src/a.c",
		"src\\b\\c.rs",
		"/p/src/a.c",
		"/usr/lib/libc.so",
		"a//b.c",
	}
	for _, input := range inputs {
		first, err := n.Normalize(input)
		require.NoError(t, err)
		second, err := n.Normalize(first.CanonicalPath)
		require.NoError(t, err)
		assert.Equal(t, first.CanonicalPath, second.CanonicalPath, "input %q", input)
	}
}

func TestNormalize_RootItself(t *testing.T) {
	n := New("/p", false)

	res, err := n.Normalize("/p")
	require.NoError(t, err)
	assert.Equal(t, ".", res.CanonicalPath)
}

func TestNormalize_InvalidInput(t *testing.T) {
	n := New("/p", false)

	for _, input := range []string{"", "   ", "a\x00b", "a\nb"} {
		_, err := n.Normalize(input)
		require.Error(t, err, "input %q", input)
		var pe *model.InvalidPathError
		assert.ErrorAs(t, err, &pe)
	}
}

func TestResolveRef(t *testing.T) {
	n := New("/p", false)
	table := []string{"/p/src/a.c", "src\\b.c", ""}

	res := n.ResolveRef("clang", 0, table)
	assert.Equal(t, "src/a.c", res.CanonicalPath)
	assert.Equal(t, 0.9, res.Confidence)
	assert.False(t, res.Unresolved)

	res = n.ResolveRef("clang", 1, table)
	assert.Equal(t, "src/b.c", res.CanonicalPath)
	assert.Equal(t, 0.9, res.Confidence)

	tests := []struct {
		name  string
		index int
	}{
		{"negative index", -1},
		{"out of range", 3},
		{"empty entry", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := n.ResolveRef("clang", tc.index, table)
			assert.True(t, res.Unresolved)
			assert.Equal(t, 0.0, res.Confidence)
			assert.Contains(t, res.CanonicalPath, "unknown:clang:")
		})
	}
}

func TestResolveRef_ExternalEntry(t *testing.T) {
	n := New("/p", false)

	res := n.ResolveRef("clang", 0, []string{"/usr/include/stdio.h"})
	assert.True(t, res.ExternalToProject)
	assert.Equal(t, 0.7, res.Confidence)
	assert.Equal(t, "/usr/include/stdio.h", res.CanonicalPath)
}
