package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
)

type Client struct {
	mock.Mock
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) GetChildProjectHierarchy(ctx context.Context, projectID int) (codeinsight.ChildProjectHierarchy, error) {
	args := c.Called(ctx, projectID)
	return args.Get(0).(codeinsight.ChildProjectHierarchy), args.Error(1)
}

func (c *Client) GetProjectInventory(ctx context.Context, projectID int, options codeinsight.InventoryOptions) (codeinsight.ProjectInventoryResponse, error) {
	args := c.Called(ctx, projectID, options)
	return args.Get(0).(codeinsight.ProjectInventoryResponse), args.Error(1)
}

func (c *Client) UploadProjectReport(ctx context.Context, projectID, reportID int, archivePath string) error {
	args := c.Called(ctx, projectID, reportID, archivePath)
	return args.Error(0)
}

func (c *Client) ListReports(ctx context.Context) ([]codeinsight.Report, error) {
	args := c.Called(ctx)
	return args.Get(0).([]codeinsight.Report), args.Error(1)
}

func (c *Client) RegisterReport(ctx context.Context, request codeinsight.RegisterReportRequest) (int, error) {
	args := c.Called(ctx, request)
	return args.Int(0), args.Error(1)
}

func (c *Client) UnregisterReport(ctx context.Context, reportID int) error {
	args := c.Called(ctx, reportID)
	return args.Error(0)
}
