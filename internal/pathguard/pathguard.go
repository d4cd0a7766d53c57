// Package pathguard resolves tenant-supplied relative paths to real,
// symlink-verified absolute paths confined to one of an ordered list of
// jail base directories.
//
// Symlinks are resolved after joining the input onto the base, so a link
// planted inside the jail cannot redirect an operation outside it. For
// create intents the parent directory alone is canonicalized, which still
// verifies every directory component that exists on disk.
package pathguard

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolved is the outcome of a successful resolution. Path is the real
// absolute path of the target; Base is the real path of the jail base it
// resolved under. Invariant: Path == Base or Path starts with Base + sep.
type Resolved struct {
	Path string
	Base string
}

// Resolver confines path resolution to an ordered list of base
// directories, tried first to last with first success winning.
type Resolver struct {
	bases []string
}

// NewResolver builds a resolver over the given jail bases in priority
// order. Duplicates are dropped, keeping the earliest occurrence.
func NewResolver(bases ...string) *Resolver {
	seen := make(map[string]bool, len(bases))
	var uniq []string
	for _, b := range bases {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		uniq = append(uniq, b)
	}
	return &Resolver{bases: uniq}
}

// Bases returns the configured jail roots in priority order.
func (r *Resolver) Bases() []string {
	out := make([]string, len(r.bases))
	copy(out, r.bases)
	return out
}

// Resolve maps a tenant-relative input path to a real path inside one of
// the jail bases. With mustExist the whole target is canonicalized; without
// it only the parent directory is, permitting a not-yet-existing leaf.
//
// Error priority when every base fails: no base existed at all wins, then
// escape, then not-found, then invalid.
func (r *Resolver) Resolve(input string, mustExist bool) (Resolved, error) {
	if strings.TrimSpace(input) == "" {
		return Resolved{}, errRequired()
	}
	if filepath.IsAbs(input) {
		return Resolved{}, errAbsolute()
	}
	if strings.ContainsRune(input, 0) {
		return Resolved{}, errNullByte()
	}

	var hasBase, sawEscape, sawNotFound bool

	for _, base := range r.bases {
		baseReal, err := filepath.EvalSymlinks(base)
		if err != nil {
			// Base missing entirely; a later base may still serve.
			continue
		}
		hasBase = true

		candidate := filepath.Join(baseReal, input)

		var targetReal string
		if mustExist {
			targetReal, err = filepath.EvalSymlinks(candidate)
			if err != nil {
				sawNotFound = true
				continue
			}
		} else {
			parentReal, err := filepath.EvalSymlinks(filepath.Dir(candidate))
			if err != nil {
				sawNotFound = true
				continue
			}
			targetReal = filepath.Join(parentReal, filepath.Base(candidate))
		}

		if !WithinBase(targetReal, baseReal) {
			sawEscape = true
			continue
		}

		return Resolved{Path: targetReal, Base: baseReal}, nil
	}

	switch {
	case !hasBase:
		return Resolved{}, errNoBaseDir()
	case sawEscape:
		return Resolved{}, errForbidden()
	case sawNotFound:
		return Resolved{}, errNotFound()
	default:
		return Resolved{}, errInvalid()
	}
}

// EnsureUserAccess restricts non-admin users to their own subtree of the
// jail base the path resolved under.
func (r *Resolver) EnsureUserAccess(res Resolved, username string, isAdmin bool) error {
	if isAdmin {
		return nil
	}

	userDirReal, err := filepath.EvalSymlinks(filepath.Join(res.Base, username))
	if err != nil {
		return errUserDirNotFound()
	}

	if !WithinBase(res.Path, userDirReal) {
		return errForbiddenUser()
	}
	return nil
}

// WithinBase reports whether target equals base or sits below it. Pure
// string containment on already-canonicalized paths.
func WithinBase(target, base string) bool {
	return target == base || strings.HasPrefix(target, base+string(os.PathSeparator))
}

// AssertWithinBase is a final defense-in-depth check before destructive
// filesystem mutations on paths built by string concatenation from an
// already-validated directory. It is not symlink-aware.
func AssertWithinBase(target, base string) error {
	if !WithinBase(target, base) {
		return errInvalid()
	}
	return nil
}
