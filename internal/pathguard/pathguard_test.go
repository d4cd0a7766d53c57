package pathguard

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newJail builds a canonical jail base with a user/domain layout and a
// sibling directory outside the jail holding a secret file.
func newJail(t *testing.T) (base, outside string) {
	t.Helper()

	root := t.TempDir()
	base = filepath.Join(root, "sites")
	outside = filepath.Join(root, "outside")

	require.NoError(t, os.MkdirAll(filepath.Join(base, "alice", "example.com"), 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "alice", "example.com", "index.html"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))

	return base, outside
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	return pe.Kind
}

func TestResolveRejectsStructurallyInvalidInput(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	tests := []struct {
		name   string
		input  string
		kind   Kind
		status int
	}{
		{"empty", "", KindInvalid, http.StatusBadRequest},
		{"whitespace only", "   ", KindInvalid, http.StatusBadRequest},
		{"absolute", "/etc/passwd", KindAbsolutePath, http.StatusBadRequest},
		{"null byte", "alice/\x00evil", KindNullByte, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.input, true)
			require.Error(t, err)

			var pe *PathError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.status, pe.Status)
		})
	}
}

func TestResolveExistingPath(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	res, err := r.Resolve("alice/example.com/index.html", true)
	require.NoError(t, err)

	baseReal, err2 := filepath.EvalSymlinks(base)
	require.NoError(t, err2)
	assert.Equal(t, filepath.Join(baseReal, "alice", "example.com", "index.html"), res.Path)
	assert.Equal(t, baseReal, res.Base)
	assert.True(t, WithinBase(res.Path, res.Base))
}

func TestResolveIsIdempotent(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	first, err := r.Resolve("alice/example.com", true)
	require.NoError(t, err)
	second, err := r.Resolve("alice/example.com", true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveTraversalIsForbidden(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	// ../outside/secret.txt exists on disk but sits outside the jail.
	_, err := r.Resolve("../outside/secret.txt", true)
	assert.Equal(t, KindForbidden, kindOf(t, err))

	// Same intent with a create-file target: the parent resolves outside.
	_, err = r.Resolve("../outside/newfile.txt", false)
	assert.Equal(t, KindForbidden, kindOf(t, err))
}

func TestResolveTraversalNeverEscapes(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	inputs := []string{
		"../outside/secret.txt",
		"alice/../../outside/secret.txt",
		"alice/example.com/../../../outside/secret.txt",
	}
	for _, input := range inputs {
		res, err := r.Resolve(input, true)
		if err == nil {
			t.Fatalf("Resolve(%q) = %q, expected failure", input, res.Path)
		}
		kind := kindOf(t, err)
		assert.Contains(t, []Kind{KindForbidden, KindInvalid}, kind, "input %q", input)
	}
}

func TestResolveSymlinkEscapeIsForbidden(t *testing.T) {
	base, outside := newJail(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "alice", "sneaky")))

	r := NewResolver(base)

	// Symlink planted inside the jail points outside; following it must fail.
	_, err := r.Resolve("alice/sneaky/secret.txt", true)
	assert.Equal(t, KindForbidden, kindOf(t, err))

	// Parent-only canonicalization defeats the same trick on create intent.
	_, err = r.Resolve("alice/sneaky/upload.txt", false)
	assert.Equal(t, KindForbidden, kindOf(t, err))
}

func TestResolveSymlinkWithinJailIsAllowed(t *testing.T) {
	base, _ := newJail(t)
	require.NoError(t, os.Symlink(
		filepath.Join(base, "alice", "example.com"),
		filepath.Join(base, "alice", "current"),
	))

	r := NewResolver(base)

	res, err := r.Resolve("alice/current/index.html", true)
	require.NoError(t, err)
	assert.True(t, WithinBase(res.Path, res.Base))
}

func TestResolveCreateIntent(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	// Leaf does not exist yet; parent does.
	res, err := r.Resolve("alice/example.com/new.html", false)
	require.NoError(t, err)
	assert.Equal(t, "new.html", filepath.Base(res.Path))
	assert.True(t, WithinBase(res.Path, res.Base))

	// Missing parent is a not-found, not a silent create of the chain.
	_, err = r.Resolve("alice/missing-dir/new.html", false)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestResolveNotFound(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	_, err := r.Resolve("alice/nope.txt", true)
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestResolveDualBaseFallback(t *testing.T) {
	primary, _ := newJail(t)
	legacyRoot := t.TempDir()
	legacy := filepath.Join(legacyRoot, "legacy-sites")
	require.NoError(t, os.MkdirAll(filepath.Join(legacy, "bob", "old.example.org"), 0o755))

	r := NewResolver(primary, legacy)

	// Path only present under the legacy base resolves against it.
	res, err := r.Resolve("bob/old.example.org", true)
	require.NoError(t, err)
	legacyReal, err2 := filepath.EvalSymlinks(legacy)
	require.NoError(t, err2)
	assert.Equal(t, legacyReal, res.Base)

	// Missing primary base is skipped, not fatal.
	r = NewResolver(filepath.Join(legacyRoot, "does-not-exist"), legacy)
	res, err = r.Resolve("bob/old.example.org", true)
	require.NoError(t, err)
	assert.Equal(t, legacyReal, res.Base)
}

func TestResolveEscapePriorityOverNotFound(t *testing.T) {
	base, outside := newJail(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "alice", "sneaky")))

	secondRoot := t.TempDir()
	second := filepath.Join(secondRoot, "sites")
	require.NoError(t, os.MkdirAll(second, 0o755))

	r := NewResolver(base, second)

	// First base escapes, second base has nothing: escape wins over not-found.
	_, err := r.Resolve("alice/sneaky/secret.txt", true)
	assert.Equal(t, KindForbidden, kindOf(t, err))
}

func TestResolveEscapeInFirstBaseFallsThroughToSecond(t *testing.T) {
	base, outside := newJail(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "shared")))

	secondRoot := t.TempDir()
	second := filepath.Join(secondRoot, "sites")
	require.NoError(t, os.MkdirAll(filepath.Join(second, "shared"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(second, "shared", "ok.txt"), []byte("ok"), 0o644))

	r := NewResolver(base, second)

	// Same relative path escapes under base one but is legitimate under
	// base two; the resolver keeps searching instead of failing early.
	res, err := r.Resolve("shared/ok.txt", true)
	require.NoError(t, err)
	secondReal, err2 := filepath.EvalSymlinks(second)
	require.NoError(t, err2)
	assert.Equal(t, secondReal, res.Base)
}

func TestResolveNoBaseDirectory(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(filepath.Join(root, "a"), filepath.Join(root, "b"))

	_, err := r.Resolve("anything", true)
	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindNoBaseDir, pe.Kind)
	assert.Equal(t, http.StatusInternalServerError, pe.Status)
}

func TestEnsureUserAccess(t *testing.T) {
	base, _ := newJail(t)
	r := NewResolver(base)

	own, err := r.Resolve("alice/example.com", true)
	require.NoError(t, err)

	// Owner passes, admin always passes.
	assert.NoError(t, r.EnsureUserAccess(own, "alice", false))
	assert.NoError(t, r.EnsureUserAccess(own, "mallory", true))

	// Another user's subtree is off limits.
	err = r.EnsureUserAccess(own, "bob", false)
	// bob has no user directory at all here
	assert.Equal(t, KindNotFound, kindOf(t, err))

	require.NoError(t, os.MkdirAll(filepath.Join(base, "bob"), 0o755))
	err = r.EnsureUserAccess(own, "bob", false)
	assert.Equal(t, KindForbidden, kindOf(t, err))
}

func TestAssertWithinBase(t *testing.T) {
	assert.NoError(t, AssertWithinBase("/srv/sites/alice", "/srv/sites"))
	assert.NoError(t, AssertWithinBase("/srv/sites", "/srv/sites"))

	err := AssertWithinBase("/srv/sites-evil", "/srv/sites")
	require.Error(t, err)
	var pe *PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)

	assert.Error(t, AssertWithinBase("/etc/passwd", "/srv/sites"))
}
