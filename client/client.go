// Package client is a Go client for the payroll HTTP API.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/api"
)

// Export formats accepted by Export.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one payroll server.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, logger: logger}
}

// Upload sends the file at path to /updatePayRoll.
func (c *Client) Upload(ctx context.Context, path string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetError(&api.ErrorResponse{}).
		Post("/updatePayRoll")
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	c.logger.Debug("upload finished", zap.String("path", path), zap.Int("status", resp.StatusCode()))
	return checkResponse(resp)
}

// UploadReader sends r as a file named filename.
func (c *Client) UploadReader(ctx context.Context, filename string, r io.Reader) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetError(&api.ErrorResponse{}).
		Post("/updatePayRoll")
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	return checkResponse(resp)
}

// Report fetches /getPayRoll.
func (c *Client) Report(ctx context.Context) ([]api.EmployeeReportDTO, error) {
	var result api.PayrollResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&api.ErrorResponse{}).
		Get("/getPayRoll")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return result.PayrollReport.EmployeeReports, nil
}

// Ingestions lists accepted uploads.
func (c *Client) Ingestions(ctx context.Context) ([]api.IngestionDTO, error) {
	var result []api.IngestionDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&api.ErrorResponse{}).
		Get("/api/ingestions")
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestions: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return result, nil
}

// Export downloads the report as FormatCSV or FormatXLSX.
func (c *Client) Export(ctx context.Context, format string) ([]byte, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("unknown export format %q", format)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&api.ErrorResponse{}).
		Get("/api/payroll/export." + format)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
	if body, ok := resp.Error().(*api.ErrorResponse); ok && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	}
	return apiErr
}
