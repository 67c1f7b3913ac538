package codeinsight

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/schema"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
)

const (
	pathAPIPrefix       = "/codeinsight/api"
	pathChildProjects   = "/project/%d/childProjects"
	pathInventory       = "/project/inventory/%d"
	pathProjectReport   = "/projects/%d/reports/%d"
	pathReports         = "/reports"
	pathReport          = "/reports/%d"
	formFieldReportFile = "file"
)

// Client performs the Code Insight REST calls the report relies on.
type Client interface {
	GetChildProjectHierarchy(ctx context.Context, projectID int) (ChildProjectHierarchy, error)
	GetProjectInventory(ctx context.Context, projectID int, options InventoryOptions) (ProjectInventoryResponse, error)
	UploadProjectReport(ctx context.Context, projectID, reportID int, archivePath string) error
	ListReports(ctx context.Context) ([]Report, error)
	RegisterReport(ctx context.Context, request RegisterReportRequest) (int, error)
	UnregisterReport(ctx context.Context, reportID int) error
}

// Error is returned when Code Insight answers with a non 2xx status.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: unexpected response status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	encoder    *schema.Encoder
}

// NewClient constructs a Client authenticating with the given bearer token.
func NewClient(config etc.CodeInsight, token string) Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		encoder: schema.NewEncoder(),
	}
}

func (c *client) GetChildProjectHierarchy(ctx context.Context, projectID int) (hierarchy ChildProjectHierarchy, err error) {
	query := url.Values{"recursive": {"true"}}

	var response envelope[ChildProjectHierarchy]
	if err = c.doJSON(ctx, http.MethodGet, fmt.Sprintf(pathChildProjects, projectID), query, nil, &response); err != nil {
		return hierarchy, xerrors.Errorf("getting child projects of project %d: %w", projectID, err)
	}

	return response.Data, nil
}

func (c *client) GetProjectInventory(ctx context.Context, projectID int, options InventoryOptions) (inventory ProjectInventoryResponse, err error) {
	query := url.Values{}
	if err = c.encoder.Encode(options, query); err != nil {
		return inventory, xerrors.Errorf("encoding inventory options: %w", err)
	}

	if err = c.doJSON(ctx, http.MethodGet, fmt.Sprintf(pathInventory, projectID), query, nil, &inventory); err != nil {
		return inventory, xerrors.Errorf("getting inventory of project %d: %w", projectID, err)
	}

	slog.Debug("Fetched project inventory",
		slog.Int("project_id", projectID),
		slog.Int("inventory_items", len(inventory.InventoryItems)),
	)
	return
}

func (c *client) UploadProjectReport(ctx context.Context, projectID, reportID int, archivePath string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return xerrors.Errorf("opening report archive: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(formFieldReportFile, filepath.Base(archivePath))
	if err != nil {
		return xerrors.Errorf("creating multipart form: %w", err)
	}
	if _, err = io.Copy(part, file); err != nil {
		return xerrors.Errorf("copying report archive: %w", err)
	}
	if err = writer.Close(); err != nil {
		return xerrors.Errorf("closing multipart form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf(pathProjectReport, projectID, reportID), nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	slog.Debug("Uploading report archive",
		slog.Int("project_id", projectID),
		slog.Int("report_id", reportID),
		slog.String("archive", archivePath),
	)
	if err = c.do(req, nil); err != nil {
		return xerrors.Errorf("uploading report archive: %w", err)
	}
	return nil
}

func (c *client) ListReports(ctx context.Context) ([]Report, error) {
	var response envelope[[]Report]
	if err := c.doJSON(ctx, http.MethodGet, pathReports, nil, nil, &response); err != nil {
		return nil, xerrors.Errorf("listing reports: %w", err)
	}
	return response.Data, nil
}

func (c *client) RegisterReport(ctx context.Context, request RegisterReportRequest) (int, error) {
	var response envelope[struct {
		ID int `json:"id"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, pathReports, nil, request, &response); err != nil {
		return 0, xerrors.Errorf("registering report %s: %w", request.Name, err)
	}
	return response.Data.ID, nil
}

func (c *client) UnregisterReport(ctx context.Context, reportID int) error {
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf(pathReport, reportID), nil, nil, nil); err != nil {
		return xerrors.Errorf("unregistering report %d: %w", reportID, err)
	}
	return nil
}

func (c *client) doJSON(ctx context.Context, method, path string, query url.Values, payload, target interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return xerrors.Errorf("marshalling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, target)
}

func (c *client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + pathAPIPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, xerrors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *client) do(req *http.Request, target interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer c.close(res.Body)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &Error{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}

	if target == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(target); err != nil {
		return xerrors.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *client) close(body io.Closer) {
	if err := body.Close(); err != nil {
		slog.Warn("Error while closing response body", slog.String("err", err.Error()))
	}
}
