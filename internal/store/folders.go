package store

import (
	"database/sql"
	"errors"
	"fmt"

	"docklite/internal/folder"
)

// CreateFolder inserts a folder at the end of its sibling list. Depth
// is the caller's responsibility (folder.CalculateDepth). Folder names
// are unique per user; a duplicate returns ErrFolderExists.
func (s *Store) CreateFolder(userID int64, name string, parentID *int64, depth int) (*folder.Folder, error) {
	res, err := s.db.Exec(`
		INSERT INTO folders (user_id, parent_folder_id, name, depth, position)
		VALUES (?, ?, ?, ?, (
			SELECT COALESCE(MAX(position), -1) + 1 FROM folders
			WHERE user_id = ? AND parent_folder_id IS ?
		))`,
		userID, parentID, name, depth, userID, parentID,
	)
	if isUniqueViolation(err) {
		return nil, ErrFolderExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return s.GetFolder(id)
}

// EnsureDefaultFolder returns the user's root "Default" folder,
// creating it on first use.
func (s *Store) EnsureDefaultFolder(userID int64) (*folder.Folder, error) {
	f, err := s.scanFolder(s.db.QueryRow(`
		SELECT id, user_id, parent_folder_id, name, depth, position FROM folders
		WHERE user_id = ? AND name = ? AND parent_folder_id IS NULL`,
		userID, folder.DefaultFolderName))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	created, err := s.CreateFolder(userID, folder.DefaultFolderName, nil, 0)
	if errors.Is(err, ErrFolderExists) {
		// Lost a create race; someone else inserted the row.
		return s.scanFolder(s.db.QueryRow(`
			SELECT id, user_id, parent_folder_id, name, depth, position FROM folders
			WHERE user_id = ? AND name = ?`,
			userID, folder.DefaultFolderName))
	}
	return created, err
}

func (s *Store) GetFolder(id int64) (*folder.Folder, error) {
	return s.scanFolder(s.db.QueryRow(
		"SELECT id, user_id, parent_folder_id, name, depth, position FROM folders WHERE id = ?", id))
}

func (s *Store) ListFoldersByUser(userID int64) ([]folder.Folder, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, parent_folder_id, name, depth, position FROM folders
		WHERE user_id = ? ORDER BY depth, position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []folder.Folder
	for rows.Next() {
		var f folder.Folder
		var parentID sql.NullInt64
		if err := rows.Scan(&f.ID, &f.UserID, &parentID, &f.Name, &f.Depth, &f.Position); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		if parentID.Valid {
			f.ParentID = &parentID.Int64
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *Store) RenameFolder(id int64, name string) error {
	res, err := s.db.Exec("UPDATE folders SET name = ? WHERE id = ?", name, id)
	if isUniqueViolation(err) {
		return ErrFolderExists
	}
	if err != nil {
		return fmt.Errorf("failed to rename folder %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// MoveFolder re-parents a folder, appends it to the new sibling list,
// and rewrites the depth of the moved subtree. Nesting validation
// (folder.CanNest) happens before this is called.
func (s *Store) MoveFolder(id int64, newParentID *int64, newDepth int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to move folder %d: %w", id, err)
	}
	defer tx.Rollback()

	var userID int64
	if err := tx.QueryRow("SELECT user_id FROM folders WHERE id = ?", id).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to move folder %d: %w", id, err)
	}

	_, err = tx.Exec(`
		UPDATE folders SET parent_folder_id = ?, depth = ?, position = (
			SELECT COALESCE(MAX(position), -1) + 1 FROM folders
			WHERE user_id = ? AND parent_folder_id IS ? AND id != ?
		) WHERE id = ?`,
		newParentID, newDepth, userID, newParentID, id, id,
	)
	if err != nil {
		return fmt.Errorf("failed to move folder %d: %w", id, err)
	}

	// Fix descendant depths level by level.
	parents := []int64{id}
	depth := newDepth
	for len(parents) > 0 {
		depth++
		var next []int64
		for _, pid := range parents {
			rows, err := tx.Query("SELECT id FROM folders WHERE parent_folder_id = ?", pid)
			if err != nil {
				return fmt.Errorf("failed to move folder %d: %w", id, err)
			}
			for rows.Next() {
				var cid int64
				if err := rows.Scan(&cid); err != nil {
					rows.Close()
					return fmt.Errorf("failed to move folder %d: %w", id, err)
				}
				next = append(next, cid)
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return fmt.Errorf("failed to move folder %d: %w", id, err)
			}
			rows.Close()
		}
		for _, cid := range next {
			if _, err := tx.Exec("UPDATE folders SET depth = ? WHERE id = ?", depth, cid); err != nil {
				return fmt.Errorf("failed to move folder %d: %w", id, err)
			}
		}
		parents = next
	}

	return tx.Commit()
}

// DeleteFolder removes a folder; child folders and container
// memberships go with it through the schema's cascading deletes.
func (s *Store) DeleteFolder(id int64) error {
	res, err := s.db.Exec("DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// AssignContainer places a container at the end of a folder, removing
// any previous membership first: a container lives in at most one
// folder.
func (s *Store) AssignContainer(folderID int64, containerID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to assign container %s: %w", containerID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM folder_containers WHERE container_id = ?", containerID); err != nil {
		return fmt.Errorf("failed to assign container %s: %w", containerID, err)
	}
	_, err = tx.Exec(`
		INSERT INTO folder_containers (folder_id, container_id, position)
		VALUES (?, ?, (
			SELECT COALESCE(MAX(position), -1) + 1 FROM folder_containers WHERE folder_id = ?
		))`,
		folderID, containerID, folderID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign container %s: %w", containerID, err)
	}
	return tx.Commit()
}

func (s *Store) UnassignContainer(containerID string) error {
	_, err := s.db.Exec("DELETE FROM folder_containers WHERE container_id = ?", containerID)
	if err != nil {
		return fmt.Errorf("failed to unassign container %s: %w", containerID, err)
	}
	return nil
}

// ReorderContainers rewrites the positions of a folder's containers to
// match the given order. Containers not listed keep their rows but are
// pushed after the listed ones in list order.
func (s *Store) ReorderContainers(folderID int64, orderedIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to reorder folder %d: %w", folderID, err)
	}
	defer tx.Rollback()

	for pos, containerID := range orderedIDs {
		_, err := tx.Exec(
			"UPDATE folder_containers SET position = ? WHERE folder_id = ? AND container_id = ?",
			pos, folderID, containerID,
		)
		if err != nil {
			return fmt.Errorf("failed to reorder folder %d: %w", folderID, err)
		}
	}
	return tx.Commit()
}

// ContainersByFolder returns each folder's container ids ordered by
// position, keyed by folder id, for the given user's folders.
func (s *Store) ContainersByFolder(userID int64) (map[int64][]string, error) {
	rows, err := s.db.Query(`
		SELECT fc.folder_id, fc.container_id
		FROM folder_containers fc
		JOIN folders f ON f.id = fc.folder_id
		WHERE f.user_id = ?
		ORDER BY fc.folder_id, fc.position`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder containers: %w", err)
	}
	defer rows.Close()

	byFolder := make(map[int64][]string)
	for rows.Next() {
		var folderID int64
		var containerID string
		if err := rows.Scan(&folderID, &containerID); err != nil {
			return nil, fmt.Errorf("failed to scan folder container: %w", err)
		}
		byFolder[folderID] = append(byFolder[folderID], containerID)
	}
	return byFolder, rows.Err()
}

// FolderForContainer reports which folder a container belongs to, or
// ErrNotFound.
func (s *Store) FolderForContainer(containerID string) (*folder.Folder, error) {
	return s.scanFolder(s.db.QueryRow(`
		SELECT f.id, f.user_id, f.parent_folder_id, f.name, f.depth, f.position
		FROM folders f
		JOIN folder_containers fc ON fc.folder_id = f.id
		WHERE fc.container_id = ?`, containerID))
}

func (s *Store) scanFolder(row *sql.Row) (*folder.Folder, error) {
	var f folder.Folder
	var parentID sql.NullInt64
	err := row.Scan(&f.ID, &f.UserID, &parentID, &f.Name, &f.Depth, &f.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}
	if parentID.Valid {
		f.ParentID = &parentID.Int64
	}
	return &f, nil
}
