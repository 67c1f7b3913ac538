package codeinsight

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NotAvailable is the placeholder Code Insight uses for missing scores and vectors.
const NotAvailable = "N/A"

// ChildProjectHierarchy is the nested child project tree of a project.
type ChildProjectHierarchy struct {
	ID           int                     `json:"id"`
	Name         string                  `json:"name"`
	ChildProject []ChildProjectHierarchy `json:"childProject"`
}

type ProjectInventoryResponse struct {
	ProjectName string `json:"projectName"`
	// InventoryItems is nil when the response has no inventoryItems key
	// and empty when the project has no published inventory.
	InventoryItems []InventoryItem `json:"inventoryItems"`
}

type InventoryItem struct {
	ID                   int             `json:"id"`
	ComponentName        string          `json:"componentName"`
	ComponentVersionName string          `json:"componentVersionName"`
	FilePaths            []string        `json:"filePaths"`
	CustomFields         []CustomField   `json:"customFields"`
	Vulnerabilities      []Vulnerability `json:"vulnerabilities"`
}

type CustomField struct {
	FieldLabel string     `json:"fieldLabel"`
	Value      FieldValue `json:"value"`
}

// FieldValue is the value of a custom field. Non string values are kept as
// their JSON text and null decodes to an empty value.
type FieldValue string

func (v *FieldValue) UnmarshalJSON(b []byte) error {
	*v = FieldValue(decodeLiteral(b, ""))
	return nil
}

type Vulnerability struct {
	Name           string `json:"vulnerabilityName"`
	Description    string `json:"vulnerabilityDescription"`
	Source         string `json:"vulnerabilitySource"`
	URL            string `json:"vulnerabilityUrl"`
	CvssV2Severity string `json:"vulnerabilityCvssV2Severity"`
	CvssV2Score    Score  `json:"vulnerabilityCvssV2Score"`
	CvssV2Vector   string `json:"vulnerabilityCvssV2Vector"`
	CvssV3Severity string `json:"vulnerabilityCvssV3Severity"`
	CvssV3Score    Score  `json:"vulnerabilityCvssV3Score"`
	CvssV3Vector   string `json:"vulnerabilityCvssV3Vector"`
	PublishedDate  string `json:"publishedDate"`
	ModifiedDate   string `json:"modifiedDate"`
}

// Score holds a CVSS score exactly as the server wrote it. Scores come either
// as JSON numbers (9.8, 10.0) or as the string "N/A"; numbers keep their
// literal text so that 10.0 stays "10.0".
type Score string

func (s *Score) UnmarshalJSON(b []byte) error {
	*s = Score(decodeLiteral(b, NotAvailable))
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(s), 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

func (s Score) String() string {
	return string(s)
}

// Report is an entry of the Code Insight report catalog.
type Report struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Path                string `json:"path"`
	Order               int    `json:"order"`
	EnableProjectPicker bool   `json:"enableProjectPicker"`
}

type RegisterReportRequest struct {
	Name                string `json:"name"`
	Path                string `json:"path"`
	Order               int    `json:"order"`
	EnableProjectPicker bool   `json:"enableProjectPicker"`
}

// InventoryOptions are sent as query parameters of the inventory request.
type InventoryOptions struct {
	SkipVulnerabilities bool `schema:"skipVulnerabilities"`
	Published           bool `schema:"published"`
	IncludeFiles        bool `schema:"includeFiles"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func decodeLiteral(b []byte, null string) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return null
	}
	if b[0] == '"' {
		var value string
		if err := json.Unmarshal(b, &value); err == nil {
			return value
		}
	}
	return string(b)
}
