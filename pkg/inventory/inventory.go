package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
)

// IgnoreListFieldLabel is the label of the inventory custom field listing
// vulnerabilities to suppress for an item.
const IgnoreListFieldLabel = "Vulnerability Ignore List"

const ignoreReasonSeparator = "|"

// ErrMissingInventoryItems is returned for an inventory response without the inventoryItems key.
var ErrMissingInventoryItems = errors.New("response without inventoryItems")

// Item is an inventory item with its ignore list already applied.
type Item struct {
	ID                   int
	ComponentName        string
	ComponentVersionName string
	FilePaths            []string
	Link                 string
	Vulnerabilities      []codeinsight.Vulnerability
	// Ignored holds the names of the vulnerabilities removed by the ignore list.
	Ignored []string
}

// IgnoreList is a set of vulnerability names.
type IgnoreList map[string]struct{}

func (l IgnoreList) Contains(name string) bool {
	_, ok := l[name]
	return ok
}

// ParseIgnoreList reads one vulnerability per line. Anything after the first
// pipe is a free text reason and is dropped.
func ParseIgnoreList(value string) IgnoreList {
	list := IgnoreList{}
	for _, line := range strings.Split(value, "\n") {
		name, _, _ := strings.Cut(strings.TrimSpace(line), ignoreReasonSeparator)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		list[name] = struct{}{}
	}
	return list
}

// ExtractIgnoreList returns the ignore list of the item. Servers that do not
// define the custom field yield an empty list.
func ExtractIgnoreList(item codeinsight.InventoryItem) IgnoreList {
	for _, field := range item.CustomFields {
		if field.FieldLabel == IgnoreListFieldLabel && field.Value != "" {
			return ParseIgnoreList(string(field.Value))
		}
	}
	return IgnoreList{}
}

// FetchError is returned when the inventory of a project cannot be retrieved or is malformed.
type FetchError struct {
	ProjectID int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching inventory of project %d: %v", e.ProjectID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Normalizer wraps the Normalize method.
// Normalize fetches the published inventory of a project and applies the
// ignore list of every item.
type Normalizer interface {
	Normalize(ctx context.Context, projectID int) ([]Item, error)
}

type normalizer struct {
	client       codeinsight.Client
	baseURL      string
	includeFiles bool
}

// NewNormalizer constructs a Normalizer. File paths are only requested when
// includeFiles is set.
func NewNormalizer(client codeinsight.Client, baseURL string, includeFiles bool) Normalizer {
	return &normalizer{
		client:       client,
		baseURL:      baseURL,
		includeFiles: includeFiles,
	}
}

func (n *normalizer) Normalize(ctx context.Context, projectID int) ([]Item, error) {
	response, err := n.client.GetProjectInventory(ctx, projectID, codeinsight.InventoryOptions{
		Published:    true,
		IncludeFiles: n.includeFiles,
	})
	if err != nil {
		return nil, &FetchError{ProjectID: projectID, Err: err}
	}
	if response.InventoryItems == nil {
		return nil, &FetchError{ProjectID: projectID, Err: ErrMissingInventoryItems}
	}

	items, err := Normalize(projectID, n.baseURL, response.InventoryItems)
	if err != nil {
		return nil, &FetchError{ProjectID: projectID, Err: err}
	}
	return items, nil
}

// Normalize applies the ignore lists to raw inventory items of a project.
func Normalize(projectID int, baseURL string, raw []codeinsight.InventoryItem) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		if r.ID == 0 {
			return nil, errors.New("inventory item without id")
		}

		item := Item{
			ID:                   r.ID,
			ComponentName:        r.ComponentName,
			ComponentVersionName: r.ComponentVersionName,
			FilePaths:            r.FilePaths,
			Link:                 ItemLink(baseURL, projectID, r.ID),
		}

		if len(r.Vulnerabilities) == 0 {
			items = append(items, item)
			continue
		}

		ignoreList := ExtractIgnoreList(r)
		for _, v := range r.Vulnerabilities {
			if ignoreList.Contains(v.Name) {
				item.Ignored = append(item.Ignored, v.Name)
				continue
			}
			item.Vulnerabilities = append(item.Vulnerabilities, v)
		}

		if len(item.Ignored) > 0 {
			slog.Debug("Ignoring vulnerabilities",
				slog.Int("project_id", projectID),
				slog.Int("inventory_id", r.ID),
				slog.Any("vulnerabilities", item.Ignored),
			)
		}
		items = append(items, item)
	}
	return items, nil
}

// ItemLink returns the inventory item page in the Code Insight UI.
func ItemLink(baseURL string, projectID, itemID int) string {
	return fmt.Sprintf("%s&pinv=%d", hierarchy.ProjectLink(baseURL, projectID), itemID)
}
