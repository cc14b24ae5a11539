package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/validate"
)

func TestNameAccepts(t *testing.T) {
	for _, n := range []string{"report.pdf", "a", "Invoices 2024", "file.tar.gz"} {
		require.NoError(t, validate.Name(n), "expected %q to be accepted", n)
	}
}

func TestNameRejectsEmpty(t *testing.T) {
	err := validate.Name("")
	require.Error(t, err)
	require.True(t, errkind.IsValidation(err))
}

func TestNameRejectsTooLong(t *testing.T) {
	err := validate.Name(strings.Repeat("a", 256))
	require.Error(t, err)
	require.True(t, errkind.IsValidation(err))
}

func TestNameRejectsForbiddenCharacters(t *testing.T) {
	for _, n := range []string{"a/b", `a\b`, "a:b", "a*b", "a?b", "a|b", `a"b`, "a<b", "a>b"} {
		err := validate.Name(n)
		require.Error(t, err, "expected %q to be rejected", n)
		require.True(t, errkind.IsValidation(err))
	}
}

func TestNameRejectsControlCharacters(t *testing.T) {
	err := validate.Name("a\x01b")
	require.Error(t, err)
	require.True(t, errkind.IsValidation(err))
}

func TestNameRejectsReservedWindowsNames(t *testing.T) {
	for _, n := range []string{"CON", "con.txt", "COM1", "LPT9.log"} {
		err := validate.Name(n)
		require.Error(t, err, "expected %q to be rejected", n)
		require.True(t, errkind.IsValidation(err))
	}
}

func TestNameRejectsTrashPrefix(t *testing.T) {
	err := validate.Name(".trash-backup")
	require.Error(t, err)
	require.True(t, errkind.IsValidation(err))
}

func TestResolveConflictNoCollisionKeepsName(t *testing.T) {
	exists := func(name string) (bool, error) { return false, nil }
	out, err := validate.ResolveConflict("report.pdf", model.ConflictError, exists)
	require.NoError(t, err)
	require.Equal(t, "report.pdf", out.FinalName)
	require.False(t, out.Skip)
	require.False(t, out.Overwrite)
}

func TestResolveConflictErrorStrategyFailsOnCollision(t *testing.T) {
	exists := func(name string) (bool, error) { return true, nil }
	_, err := validate.ResolveConflict("report.pdf", model.ConflictError, exists)
	require.Error(t, err)
	require.True(t, errkind.IsConflict(err))
}

func TestResolveConflictEmptyStrategyDefaultsToError(t *testing.T) {
	exists := func(name string) (bool, error) { return true, nil }
	_, err := validate.ResolveConflict("report.pdf", "", exists)
	require.Error(t, err)
	require.True(t, errkind.IsConflict(err))
}

func TestResolveConflictSkipStrategy(t *testing.T) {
	exists := func(name string) (bool, error) { return true, nil }
	out, err := validate.ResolveConflict("report.pdf", model.ConflictSkip, exists)
	require.NoError(t, err)
	require.True(t, out.Skip)
	require.Equal(t, "report.pdf", out.FinalName)
}

func TestResolveConflictOverwriteStrategy(t *testing.T) {
	exists := func(name string) (bool, error) { return true, nil }
	out, err := validate.ResolveConflict("report.pdf", model.ConflictOverwrite, exists)
	require.NoError(t, err)
	require.True(t, out.Overwrite)
	require.Equal(t, "report.pdf", out.FinalName)
}

func TestResolveConflictRenameStrategyAppendsCounter(t *testing.T) {
	taken := map[string]bool{"report.pdf": true, "report (1).pdf": true}
	exists := func(name string) (bool, error) { return taken[name], nil }

	out, err := validate.ResolveConflict("report.pdf", model.ConflictRename, exists)
	require.NoError(t, err)
	require.Equal(t, "report (2).pdf", out.FinalName)
	require.False(t, out.Skip)
	require.False(t, out.Overwrite)
}

func TestResolveConflictRenamePreservesExtensionlessNames(t *testing.T) {
	taken := map[string]bool{"Invoices": true}
	exists := func(name string) (bool, error) { return taken[name], nil }

	out, err := validate.ResolveConflict("Invoices", model.ConflictRename, exists)
	require.NoError(t, err)
	require.Equal(t, "Invoices (1)", out.FinalName)
}

func TestResolveConflictUnknownStrategy(t *testing.T) {
	exists := func(name string) (bool, error) { return true, nil }
	_, err := validate.ResolveConflict("report.pdf", model.ConflictStrategy("BOGUS"), exists)
	require.Error(t, err)
	require.True(t, errkind.IsValidation(err))
}

func TestResolveConflictPropagatesExistsError(t *testing.T) {
	boom := errkind.NewInternal("db unavailable", nil)
	exists := func(name string) (bool, error) { return false, boom }
	_, err := validate.ResolveConflict("report.pdf", model.ConflictError, exists)
	require.Equal(t, boom, err)
}

func TestIsDescendantPath(t *testing.T) {
	require.True(t, validate.IsDescendantPath("/a", "/a"))
	require.True(t, validate.IsDescendantPath("/a", "/a/b"))
	require.True(t, validate.IsDescendantPath("/", "/a"))
	require.False(t, validate.IsDescendantPath("/a", "/ab"))
	require.False(t, validate.IsDescendantPath("/a/b", "/a"))
}

func TestJoinPath(t *testing.T) {
	require.Equal(t, "/a", validate.JoinPath("/", "a"))
	require.Equal(t, "/a/b", validate.JoinPath("/a", "b"))
}
