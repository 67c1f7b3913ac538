package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
)

// RootParent is the parent reference of the root project node.
const RootParent = "#"

// Node is a project of the flattened hierarchy.
type Node struct {
	ID     int
	Name   string
	Parent string
	Link   string
	Depth  int
}

// Hierarchy holds the tree returned by Code Insight and its flattened form.
// Nodes are in pre-order with siblings sorted by name.
type Hierarchy struct {
	Tree  codeinsight.ChildProjectHierarchy
	Nodes []Node
	index map[int]int
}

func (h Hierarchy) Root() Node {
	return h.Nodes[0]
}

func (h Hierarchy) Node(projectID int) (Node, bool) {
	i, ok := h.index[projectID]
	if !ok {
		return Node{}, false
	}
	return h.Nodes[i], true
}

func (h Hierarchy) HasChildren() bool {
	return len(h.Nodes) > 1
}

// FetchError is returned when the project hierarchy cannot be retrieved or is malformed.
type FetchError struct {
	ProjectID int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching project hierarchy of project %d: %v", e.ProjectID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Walker wraps the Build method.
// Build fetches the child project tree of the root project and flattens it.
type Walker interface {
	Build(ctx context.Context, rootProjectID int) (Hierarchy, error)
}

type walker struct {
	client          codeinsight.Client
	baseURL         string
	includeChildren bool
}

func NewWalker(client codeinsight.Client, baseURL string, includeChildren bool) Walker {
	return &walker{
		client:          client,
		baseURL:         baseURL,
		includeChildren: includeChildren,
	}
}

func (w *walker) Build(ctx context.Context, rootProjectID int) (Hierarchy, error) {
	tree, err := w.client.GetChildProjectHierarchy(ctx, rootProjectID)
	if err != nil {
		return Hierarchy{}, &FetchError{ProjectID: rootProjectID, Err: err}
	}

	nodes, err := Flatten(tree, w.baseURL, w.includeChildren)
	if err != nil {
		return Hierarchy{}, &FetchError{ProjectID: rootProjectID, Err: err}
	}

	if !w.includeChildren {
		slog.Debug("Child hierarchy disabled", slog.Int("project_id", rootProjectID))
	}

	return New(tree, nodes), nil
}

// New indexes already flattened nodes.
func New(tree codeinsight.ChildProjectHierarchy, nodes []Node) Hierarchy {
	index := make(map[int]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}
	return Hierarchy{Tree: tree, Nodes: nodes, index: index}
}

type frame struct {
	project codeinsight.ChildProjectHierarchy
	parent  string
	depth   int
}

// Flatten walks the tree in pre-order, visiting the children of every project
// sorted by name. When includeChildren is false only the root is returned.
func Flatten(tree codeinsight.ChildProjectHierarchy, baseURL string, includeChildren bool) ([]Node, error) {
	var nodes []Node
	stack := []frame{{project: tree, parent: RootParent}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := validate(top.project); err != nil {
			return nil, err
		}

		nodes = append(nodes, Node{
			ID:     top.project.ID,
			Name:   top.project.Name,
			Parent: top.parent,
			Link:   ProjectLink(baseURL, top.project.ID),
			Depth:  top.depth,
		})

		if !includeChildren {
			break
		}

		children := make([]codeinsight.ChildProjectHierarchy, len(top.project.ChildProject))
		copy(children, top.project.ChildProject)
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].Name < children[j].Name
		})

		// pushed in reverse so that the first child by name is popped first
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				project: children[i],
				parent:  strconv.Itoa(top.project.ID),
				depth:   top.depth + 1,
			})
		}
	}

	return nodes, nil
}

func validate(project codeinsight.ChildProjectHierarchy) error {
	if project.ID == 0 {
		return errors.New("project without id")
	}
	if project.Name == "" {
		return fmt.Errorf("project %d without name", project.ID)
	}
	return nil
}

// ProjectLink returns the inventory tab of the project in the Code Insight UI.
func ProjectLink(baseURL string, projectID int) string {
	return fmt.Sprintf("%s/codeinsight/FNCI#myprojectdetails/?id=%d&tab=projectInventory", baseURL, projectID)
}
