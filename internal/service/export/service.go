package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/nacha"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	fileWH347 = "wh347.pdf"
	fileXLSX  = "summary.xlsx"
	fileNACHA = "payroll.ach"
)

type ExportServiceImpl struct {
	payrollRepo payroll.PayrollRepository
	storage     storage.FileStorage
	dispatcher  *Dispatcher
	originator  nacha.Originator
	company     Company
	logger      *slog.Logger
	now         func() time.Time
}

func NewExportService(
	payrollRepo payroll.PayrollRepository,
	fileStorage storage.FileStorage,
	dispatcher *Dispatcher,
	originator nacha.Originator,
	company Company,
	logger *slog.Logger,
) payroll.ExportService {
	return &ExportServiceImpl{
		payrollRepo: payrollRepo,
		storage:     fileStorage,
		dispatcher:  dispatcher,
		originator:  originator,
		company:     company,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ExportRun renders every artifact of an approved or paid run into a fresh versioned directory
func (s *ExportServiceImpl) ExportRun(ctx context.Context, req payroll.ExportRunRequest) (payroll.ExportResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ExportResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, req.RunID)
	if err != nil {
		return payroll.ExportResponse{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	if !run.Status.Exportable() {
		return payroll.ExportResponse{}, payroll.ErrRunNotExportable
	}

	var record payroll.ExportRecord
	err = s.dispatcher.Do(ctx, run.ID, func(jobCtx context.Context) error {
		var err error
		record, err = s.generate(jobCtx, run.ID)
		return err
	})
	if err != nil {
		return payroll.ExportResponse{}, err
	}

	return payroll.NewExportResponse(record), nil
}

type artifactSpec struct {
	artifact payroll.Artifact
	file     string
	render   func(io.Writer) error
}

func (s *ExportServiceImpl) generate(ctx context.Context, runID string) (payroll.ExportRecord, error) {
	run, err := s.payrollRepo.GetRunByID(ctx, runID)
	if err != nil {
		return payroll.ExportRecord{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	// status may have moved while the task was queued
	if !run.Status.Exportable() {
		return payroll.ExportRecord{}, payroll.ErrRunNotExportable
	}

	items, err := s.payrollRepo.ListItems(ctx, runID)
	if err != nil {
		return payroll.ExportRecord{}, fmt.Errorf("failed to list run items: %w", err)
	}

	version, err := s.payrollRepo.NextExportVersion(ctx, runID)
	if err != nil {
		return payroll.ExportRecord{}, fmt.Errorf("failed to allocate export version: %w", err)
	}

	exportID := uuid.Must(uuid.NewV7()).String()
	dir := path.Join("runs", runID, fmt.Sprintf("v%03d-%s", version, exportID))
	doc := document{Run: run, Items: items, Company: s.company, GeneratedAt: s.now()}

	specs := []artifactSpec{
		{payroll.ArtifactWH347, fileWH347, func(w io.Writer) error { return renderWH347(w, doc) }},
		{payroll.ArtifactXLSX, fileXLSX, func(w io.Writer) error { return renderSummary(w, doc) }},
		{payroll.ArtifactNACHA, fileNACHA, func(w io.Writer) error { return renderACH(w, doc, s.originator) }},
	}
	paths := make([]string, len(specs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			start := time.Now()
			stored, err := s.writeArtifact(gCtx, path.Join(dir, spec.file), spec.render)
			if err != nil {
				metrics.ExportFailuresTotal.WithLabelValues(string(spec.artifact)).Inc()
				return fmt.Errorf("%s: %w", spec.file, err)
			}
			metrics.ExportDuration.WithLabelValues(string(spec.artifact)).Observe(time.Since(start).Seconds())
			paths[i] = stored
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.discard(ctx, dir)
		s.logger.Error("Payroll export failed", "run_id", runID, "version", version, "error", err)
		return payroll.ExportRecord{}, fmt.Errorf("%w: %w", payroll.ErrExportFailed, err)
	}

	record, err := s.payrollRepo.CreateExport(ctx, payroll.ExportRecord{
		ID:        exportID,
		RunID:     runID,
		Version:   version,
		WH347Path: paths[0],
		XLSXPath:  paths[1],
		NACHAPath: paths[2],
	})
	if err != nil {
		s.discard(ctx, dir)
		return payroll.ExportRecord{}, fmt.Errorf("failed to record export: %w", err)
	}

	s.logger.Info("Payroll exported",
		"run_id", runID,
		"export_id", exportID,
		"version", version,
		"items", len(items),
	)
	return record, nil
}

func (s *ExportServiceImpl) writeArtifact(ctx context.Context, name string, render func(io.Writer) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}
	return s.storage.Upload(ctx, &buf, name)
}

// discard removes a partially written export directory; it must run even if ctx is cancelled
func (s *ExportServiceImpl) discard(ctx context.Context, dir string) {
	if err := s.storage.DeleteDir(context.WithoutCancel(ctx), dir); err != nil {
		s.logger.Error("Failed to clean up export directory", "dir", dir, "error", err)
	}
}

func (s *ExportServiceImpl) ListExports(ctx context.Context, runID string) ([]payroll.ExportResponse, error) {
	if _, err := s.payrollRepo.GetRunByID(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to get payroll run: %w", err)
	}

	records, err := s.payrollRepo.ListExports(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	result := make([]payroll.ExportResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, payroll.NewExportResponse(rec))
	}
	return result, nil
}

func (s *ExportServiceImpl) OpenArtifact(ctx context.Context, runID, exportID string, artifact payroll.Artifact) (io.ReadCloser, string, error) {
	record, err := s.payrollRepo.GetExport(ctx, runID, exportID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get export: %w", err)
	}

	stored, ok := record.Path(artifact)
	if !ok {
		return nil, "", fmt.Errorf("unknown artifact %q: %w", artifact, payroll.ErrExportNotFound)
	}

	rc, err := s.storage.Download(ctx, stored)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, "", fmt.Errorf("artifact %s is missing: %w", artifact, payroll.ErrExportNotFound)
		}
		return nil, "", fmt.Errorf("failed to open artifact: %w", err)
	}
	return rc, filepath.Base(stored), nil
}
