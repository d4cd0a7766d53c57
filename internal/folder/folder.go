// Package folder implements the nested folder hierarchy users organize
// their containers into: a bounded-depth tree per user with positional
// sibling ordering, cycle-safe re-parenting, and a distinguished
// per-user "Default" root folder.
package folder

import (
	"fmt"
	"sort"
)

// MaxDepth bounds folder nesting. 1 means two visible layers: root
// folders plus one nested layer.
const MaxDepth = 1

// DefaultFolderName is the per-user root folder created lazily. It can
// never be renamed, moved, or deleted.
const DefaultFolderName = "Default"

// Folder is a flat row of the per-user hierarchy. ParentID is a weak
// reference: a dangling parent demotes the folder to a root at read time.
type Folder struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	ParentID *int64 `json:"parent_folder_id"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Position int    `json:"position"`
}

// IsDefault reports whether this is the distinguished Default folder.
func (f Folder) IsDefault() bool {
	return f.Name == DefaultFolderName
}

// Node is a folder with its resolved children and attached container ids,
// both ordered by position.
type Node struct {
	Folder
	Children   []*Node  `json:"children"`
	Containers []string `json:"containers"`
}

// BuildTree assembles the hierarchy from a flat folder list. Single pass
// to index by id, a second pass to attach each folder to its parent
// (dangling parents fall back to root), then a stable positional sort of
// every sibling list. Linear in folder count.
func BuildTree(folders []Folder, containersByFolder map[int64][]string) []*Node {
	nodes := make(map[int64]*Node, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &Node{
			Folder:     f,
			Children:   []*Node{},
			Containers: append([]string{}, containersByFolder[f.ID]...),
		}
	}

	var roots []*Node
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*f.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			// Parent not found, treat as root.
			roots = append(roots, node)
		}
	}

	sortByPosition(roots)
	return roots
}

func sortByPosition(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Position < nodes[j].Position
	})
	for _, n := range nodes {
		sortByPosition(n.Children)
	}
}

// IsDescendant reports whether folderID sits anywhere below ancestorID,
// walking the parent-pointer chain upward. A dangling reference or a nil
// parent terminates the walk.
func IsDescendant(folderID, ancestorID int64, all []Folder) bool {
	byID := make(map[int64]Folder, len(all))
	for _, f := range all {
		byID[f.ID] = f
	}

	currentID := &folderID
	for currentID != nil {
		if *currentID == ancestorID {
			return true
		}
		f, ok := byID[*currentID]
		if !ok {
			break
		}
		currentID = f.ParentID
	}
	return false
}

// CalculateDepth returns the depth a folder would have under the given
// parent: 0 at root, parent depth + 1 otherwise. A missing parent record
// defaults to root depth.
func CalculateDepth(parentID *int64, all []Folder) int {
	if parentID == nil {
		return 0
	}
	for _, f := range all {
		if f.ID == *parentID {
			return f.Depth + 1
		}
	}
	return 0
}

// CanNest validates re-parenting folderID under newParentID (nil for
// root). Returns nil when the move is valid, or a *ValidationError the
// caller can surface as a 400-class response.
//
// The children check uses the moved folder's own current depth as a
// proxy for the height of its subtree.
func CanNest(folderID int64, newParentID *int64, all []Folder) error {
	if newParentID != nil && folderID == *newParentID {
		return &ValidationError{Kind: SelfParent, Message: "cannot nest a folder into itself"}
	}

	if newParentID != nil && IsDescendant(*newParentID, folderID, all) {
		return &ValidationError{Kind: CircularReference, Message: "cannot create circular folder reference"}
	}

	newDepth := CalculateDepth(newParentID, all)
	if newDepth > MaxDepth {
		return &ValidationError{
			Kind:    DepthExceeded,
			Message: fmt.Sprintf("maximum nesting depth is %d layers", MaxDepth+1),
		}
	}

	for _, f := range all {
		if f.ID == folderID {
			if f.Depth+newDepth > MaxDepth {
				return &ValidationError{
					Kind:    DepthExceeded,
					Message: "moving this folder would exceed maximum nesting depth for its children",
				}
			}
			break
		}
	}

	return nil
}
