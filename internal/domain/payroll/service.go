package payroll

import (
	"context"
	"io"
)

// PayrollService drives the run lifecycle: draft -> validated -> approved -> paid
type PayrollService interface {
	CreateRun(ctx context.Context, req CreateRunRequest) (RunResponse, error)

	// ValidateRun aggregates timesheets, calculates pay and replaces the run's items
	ValidateRun(ctx context.Context, req CalcRunRequest) (RunDetailResponse, error)

	ApproveRun(ctx context.Context, req ApproveRunRequest) (RunResponse, error)
	PayRun(ctx context.Context, req PayRunRequest) (PayRunResponse, error)

	GetRun(ctx context.Context, id string) (RunDetailResponse, error)
	ListRuns(ctx context.Context, req ListRunsRequest) ([]RunResponse, error)
}

// ExportService generates and serves run artifacts
type ExportService interface {
	ExportRun(ctx context.Context, req ExportRunRequest) (ExportResponse, error)
	ListExports(ctx context.Context, runID string) ([]ExportResponse, error)

	// OpenArtifact returns the file contents and its file name
	OpenArtifact(ctx context.Context, runID, exportID string, artifact Artifact) (io.ReadCloser, string, error)
}
