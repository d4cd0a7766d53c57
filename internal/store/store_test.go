package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docklite/internal/folder"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docklite.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser("alice", "s3cret", true)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsAdmin)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := s.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.CreateUser("alice", "other", false)
	assert.Error(t, err, "duplicate username must be rejected")

	require.NoError(t, s.UpdatePassword(u.ID, "newpass"))
	_, err = s.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("alice", "newpass")
	assert.NoError(t, err)
}

func TestSiteLifecycle(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	site, err := s.CreateSite(u.ID, "example.com", "static")
	require.NoError(t, err)
	assert.Equal(t, SiteStatusProvisioning, site.Status)
	assert.Nil(t, site.ContainerID)

	// A second row without a container must not trip the unique index.
	_, err = s.CreateSite(u.ID, "other.com", "php")
	require.NoError(t, err)

	require.NoError(t, s.AttachSiteContainer(site.ID, "abc123"))

	site, err = s.GetSiteByDomain("example.com")
	require.NoError(t, err)
	assert.Equal(t, SiteStatusRunning, site.Status)
	require.NotNil(t, site.ContainerID)
	assert.Equal(t, "abc123", *site.ContainerID)

	byContainer, err := s.GetSiteByContainerID("abc123")
	require.NoError(t, err)
	assert.Equal(t, site.ID, byContainer.ID)

	require.NoError(t, s.UpdateSiteStatus(site.ID, SiteStatusMissing))

	_, err = s.CreateSite(u.ID, "example.com", "static")
	assert.Error(t, err, "duplicate domain must be rejected")

	require.NoError(t, s.DeleteSite(site.ID))
	_, err = s.GetSiteByID(site.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabasePortAllocation(t *testing.T) {
	s := newTestStore(t)

	port, err := s.NextAvailablePort()
	require.NoError(t, err)
	assert.Equal(t, BasePostgresPort+1, port)

	_, err = s.CreateDatabase("appdb", port, "docklite", "pw1")
	require.NoError(t, err)

	port, err = s.NextAvailablePort()
	require.NoError(t, err)
	assert.Equal(t, BasePostgresPort+2, port)

	_, err = s.CreateDatabase("otherdb", BasePostgresPort+1, "docklite", "pw2")
	assert.Error(t, err, "duplicate port must be rejected")
}

func TestDatabasePermissions(t *testing.T) {
	s := newTestStore(t)
	alice, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "pw", false)
	require.NoError(t, err)

	db, err := s.CreateDatabase("appdb", 5433, "docklite", "pw")
	require.NoError(t, err)

	require.NoError(t, s.GrantDatabaseAccess(db.ID, alice.ID))
	require.NoError(t, s.GrantDatabaseAccess(db.ID, alice.ID), "granting twice is idempotent")

	ok, err := s.HasDatabaseAccess(db.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasDatabaseAccess(db.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := s.ListDatabasesForUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "appdb", list[0].Name)

	list, err = s.ListDatabasesForUser(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.RevokeDatabaseAccess(db.ID, alice.ID))
	ok, err = s.HasDatabaseAccess(db.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureDefaultFolderIsLazy(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	first, err := s.EnsureDefaultFolder(u.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.DefaultFolderName, first.Name)
	assert.Nil(t, first.ParentID)
	assert.Equal(t, 0, first.Depth)

	second, err := s.EnsureDefaultFolder(u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	folders, err := s.ListFoldersByUser(u.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestFolderNamesUniquePerUser(t *testing.T) {
	s := newTestStore(t)
	alice, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)
	bob, err := s.CreateUser("bob", "pw", false)
	require.NoError(t, err)

	work, err := s.CreateFolder(alice.ID, "Work", nil, 0)
	require.NoError(t, err)

	_, err = s.CreateFolder(alice.ID, "Work", nil, 0)
	assert.ErrorIs(t, err, ErrFolderExists)

	// Nesting does not relax the constraint.
	_, err = s.CreateFolder(alice.ID, "Work", &work.ID, 1)
	assert.ErrorIs(t, err, ErrFolderExists)

	// Another user may reuse the name.
	_, err = s.CreateFolder(bob.ID, "Work", nil, 0)
	require.NoError(t, err)

	// Renaming onto an existing name collides too.
	play, err := s.CreateFolder(alice.ID, "Play", nil, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.RenameFolder(play.ID, "Work"), ErrFolderExists)

	folders, err := s.ListFoldersByUser(alice.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 2)
}

func TestFolderPositionsPerSiblingList(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	root1, err := s.CreateFolder(u.ID, "Work", nil, 0)
	require.NoError(t, err)
	root2, err := s.CreateFolder(u.ID, "Play", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, root1.Position)
	assert.Equal(t, 1, root2.Position)

	child, err := s.CreateFolder(u.ID, "Projects", &root1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, child.Position, "positions restart per sibling list")
}

func TestMoveFolderRewritesSubtreeDepth(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	root, err := s.CreateFolder(u.ID, "Work", nil, 0)
	require.NoError(t, err)
	child, err := s.CreateFolder(u.ID, "Projects", &root.ID, 1)
	require.NoError(t, err)

	// Move child back up to the root level.
	require.NoError(t, s.MoveFolder(child.ID, nil, 0))

	moved, err := s.GetFolder(child.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, 0, moved.Depth)
	assert.Equal(t, 1, moved.Position, "appended after existing root")

	// Move it back under the root; depth follows.
	require.NoError(t, s.MoveFolder(child.ID, &root.ID, 1))
	moved, err = s.GetFolder(child.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, root.ID, *moved.ParentID)
	assert.Equal(t, 1, moved.Depth)
}

func TestDeleteFolderCascades(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	root, err := s.CreateFolder(u.ID, "Work", nil, 0)
	require.NoError(t, err)
	child, err := s.CreateFolder(u.ID, "Projects", &root.ID, 1)
	require.NoError(t, err)
	require.NoError(t, s.AssignContainer(child.ID, "c1"))

	require.NoError(t, s.DeleteFolder(root.ID))

	_, err = s.GetFolder(child.ID)
	assert.ErrorIs(t, err, ErrNotFound, "child folders are removed with the parent")

	byFolder, err := s.ContainersByFolder(u.ID)
	require.NoError(t, err)
	assert.Empty(t, byFolder, "memberships are removed with their folder")
}

func TestContainerMembershipIsExclusive(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	f1, err := s.CreateFolder(u.ID, "Work", nil, 0)
	require.NoError(t, err)
	f2, err := s.CreateFolder(u.ID, "Play", nil, 0)
	require.NoError(t, err)

	require.NoError(t, s.AssignContainer(f1.ID, "c1"))
	require.NoError(t, s.AssignContainer(f1.ID, "c2"))
	require.NoError(t, s.AssignContainer(f2.ID, "c1"))

	byFolder, err := s.ContainersByFolder(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, byFolder[f1.ID])
	assert.Equal(t, []string{"c1"}, byFolder[f2.ID])

	owner, err := s.FolderForContainer("c1")
	require.NoError(t, err)
	assert.Equal(t, f2.ID, owner.ID)
}

func TestReorderContainers(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("alice", "pw", false)
	require.NoError(t, err)

	f, err := s.CreateFolder(u.ID, "Work", nil, 0)
	require.NoError(t, err)
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.AssignContainer(f.ID, id))
	}

	require.NoError(t, s.ReorderContainers(f.ID, []string{"c3", "c1", "c2"}))

	byFolder, err := s.ContainersByFolder(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1", "c2"}, byFolder[f.ID])
}

func TestErrNotFoundSurfaces(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUserByID(99)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.GetSiteByDomain("nope.com")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.GetDatabaseByName("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, s.DeleteFolder(99), ErrNotFound)
}
