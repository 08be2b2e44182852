package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/nacha"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var week = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testOriginator() nacha.Originator {
	return nacha.Originator{
		ImmediateDestination:     "091000019",
		ImmediateDestinationName: "First Federal Bank",
		ImmediateOrigin:          "1234567890",
		ImmediateOriginName:      "Acme Builders",
		CompanyName:              "Acme Builders",
		CompanyID:                "1234567890",
		ODFI:                     "09100001",
	}
}

func testItem(employeeID, name, routing string) payroll.RunItem {
	return payroll.RunItem{
		ID:             employeeID + "-item",
		EmployeeID:     employeeID,
		EmployeeName:   name,
		Classification: "Carpenter",
		DavisBacon:     true,
		HoursRegular:   dec("40"),
		HoursOT:        dec("5"),
		BaseRate:       dec("25"),
		FringeRate:     dec("5"),
		ProjectCodes:   []string{"P-100"},
		Breakdown: payroll.Breakdown{
			OTRate:       dec("37.5"),
			GrossRegular: dec("1000"),
			GrossOT:      dec("187.5"),
			Gross:        dec("1187.50"),
			Pretax:       decimal.Zero,
			Taxable:      dec("1187.50"),
			Taxes:        tax.Fallback(dec("1187.50")),
			TaxSource:    tax.SourceDegraded,
			TotalTaxes:   dec("209.60"),
			Posttax:      decimal.Zero,
			Fringe:       dec("225.00"),
			Net:          dec("1202.90"),
		},
		Banking: employee.Banking{RoutingNumber: routing, AccountNumber: "000123456789", AccountType: employee.AccountTypeChecking},
	}
}

type exportFixture struct {
	svc     *ExportServiceImpl
	repo    payroll.PayrollRepository
	base    string
	storage storage.FileStorage
}

func newExportFixture(t *testing.T, wrap func(storage.FileStorage) storage.FileStorage) *exportFixture {
	t.Helper()
	base := t.TempDir()
	local, err := storage.NewLocalStorage(base)
	require.NoError(t, err)

	var fileStorage storage.FileStorage = local
	if wrap != nil {
		fileStorage = wrap(local)
	}

	d := NewDispatcher(2, discardLogger())
	d.Start()
	t.Cleanup(d.Stop)

	repo := memory.NewPayrollRepository()
	svc := NewExportService(repo, fileStorage, d, testOriginator(), Company{Name: "Acme Builders", Address: "1 Main St"}, discardLogger()).(*ExportServiceImpl)
	return &exportFixture{svc: svc, repo: repo, base: base, storage: fileStorage}
}

func (f *exportFixture) seedRun(t *testing.T, status payroll.RunStatus, items ...payroll.RunItem) payroll.PayrollRun {
	t.Helper()
	ctx := context.Background()
	run, err := f.repo.CreateRun(ctx, payroll.PayrollRun{ID: "run-1", WeekEnding: week, Status: payroll.RunStatusDraft})
	require.NoError(t, err)
	run.Status = status
	run.Provisional = true
	run, err = f.repo.SaveValidatedRun(ctx, run, items)
	require.NoError(t, err)
	return run
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestExportService_ExportRun(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusApproved,
		testItem("E-1", "Ada Lovelace", "021000021"),
		testItem("E-2", "Alan Turing", "011000015"),
	)

	resp, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Version)
	prefix := filepath.Join("runs", "run-1", "v001-"+resp.ExportID)
	assert.Equal(t, filepath.Join(prefix, "wh347.pdf"), resp.WH347Path)
	assert.Equal(t, filepath.Join(prefix, "summary.xlsx"), resp.XLSXPath)
	assert.Equal(t, filepath.Join(prefix, "payroll.ach"), resp.NACHAPath)

	pdf, err := os.ReadFile(filepath.Join(f.base, resp.WH347Path))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	ach, err := os.ReadFile(filepath.Join(f.base, resp.NACHAPath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(ach), "\r\n"), "\r\n")
	assert.Len(t, lines, 10)
	for _, line := range lines {
		assert.Len(t, line, nacha.RecordLength)
	}
	assert.Equal(t, "000000240580", lines[4][32:44])

	book, err := excelize.OpenFile(filepath.Join(f.base, resp.XLSXPath))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Employee ID", rows[0][0])
	assert.Equal(t, "E-1", rows[1][0])
	assert.Equal(t, "Totals", rows[3][0])
	assert.Equal(t, "2405.8", rows[3][26])
}

func TestExportService_ExportsNeverOverwrite(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusPaid, testItem("E-1", "Ada Lovelace", "021000021"))

	first, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)
	second, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Version)
	assert.NotEqual(t, first.NACHAPath, second.NACHAPath)
	assert.Equal(t, 6, countFiles(t, f.base))

	list, err := f.svc.ListExports(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ExportID, list[0].ExportID)
}

func TestExportService_RejectsUnapprovedRun(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusValidated, testItem("E-1", "Ada Lovelace", "021000021"))

	_, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	assert.ErrorIs(t, err, payroll.ErrRunNotExportable)

	_, err = f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "missing"})
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)

	_, err = f.svc.ListExports(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestExportService_CancelledExportLeavesNoFiles(t *testing.T) {
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusApproved, testItem("E-1", "Ada Lovelace", "021000021"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.generate(ctx, "run-1")
	assert.ErrorIs(t, err, payroll.ErrExportFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, countFiles(t, f.base))

	list, err := f.repo.ListExports(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

// failingStorage rejects uploads whose name has the given suffix
type failingStorage struct {
	storage.FileStorage
	suffix string
}

func (s failingStorage) Upload(ctx context.Context, file io.Reader, path string) (string, error) {
	if strings.HasSuffix(path, s.suffix) {
		return "", errors.New("disk full")
	}
	return s.FileStorage.Upload(ctx, file, path)
}

func TestExportService_FailedArtifactRemovesSiblings(t *testing.T) {
	f := newExportFixture(t, func(s storage.FileStorage) storage.FileStorage {
		return failingStorage{FileStorage: s, suffix: ".ach"}
	})
	f.seedRun(t, payroll.RunStatusApproved, testItem("E-1", "Ada Lovelace", "021000021"))

	_, err := f.svc.ExportRun(context.Background(), payroll.ExportRunRequest{RunID: "run-1"})
	assert.ErrorIs(t, err, payroll.ErrExportFailed)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, countFiles(t, f.base))
}

func TestExportService_InvalidBankingFailsExport(t *testing.T) {
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusApproved, testItem("E-1", "Ada Lovelace", "12345"))

	_, err := f.svc.ExportRun(context.Background(), payroll.ExportRunRequest{RunID: "run-1"})
	assert.ErrorIs(t, err, payroll.ErrExportFailed)
	assert.ErrorIs(t, err, nacha.ErrInvalidEntry)
	assert.Zero(t, countFiles(t, f.base))
}

func TestExportService_OpenArtifact(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusApproved, testItem("E-1", "Ada Lovelace", "021000021"))

	resp, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)

	rc, name, err := f.svc.OpenArtifact(ctx, "run-1", resp.ExportID, payroll.ArtifactNACHA)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "payroll.ach", name)

	first, err := bufio.NewReader(rc).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "101"))

	_, _, err = f.svc.OpenArtifact(ctx, "run-1", "nope", payroll.ArtifactNACHA)
	assert.ErrorIs(t, err, payroll.ErrExportNotFound)

	_, _, err = f.svc.OpenArtifact(ctx, "run-1", resp.ExportID, payroll.Artifact("zip"))
	assert.ErrorIs(t, err, payroll.ErrExportNotFound)
}

func TestNextBusinessDay(t *testing.T) {
	friday := time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, nextBusinessDay(friday).Weekday())
	assert.Equal(t, 10, nextBusinessDay(friday).Day())

	monday := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 11, nextBusinessDay(monday).Day())
}

func TestACHIndividualID(t *testing.T) {
	tests := []struct {
		name       string
		employeeID string
		verbatim   bool
	}{
		{"short upper case id", "E-1", true},
		{"fifteen characters", "EMP-00000000001", true},
		{"too long", "EMPLOYEE-0000000001", false},
		{"generated uuid", "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b", false},
		{"lower case", "e-1", false},
		{"contains hash", "E#1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := achIndividualID(tt.employeeID)
			assert.LessOrEqual(t, len(got), 15)
			if tt.verbatim {
				assert.Equal(t, tt.employeeID, got)
			} else {
				assert.True(t, strings.HasPrefix(got, "#"), got)
				assert.Equal(t, got, achIndividualID(tt.employeeID))
			}
		})
	}
}

func TestExportService_LongEmployeeIDsStayDistinct(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	f.seedRun(t, payroll.RunStatusApproved,
		testItem("CONTRACTOR-2024-0001", "Ada Lovelace", "021000021"),
		testItem("CONTRACTOR-2024-0002", "Alan Turing", "011000015"),
	)

	resp, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)

	ach, err := os.ReadFile(filepath.Join(f.base, resp.NACHAPath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(ach), "\r\n"), "\r\n")

	var ids []string
	for _, line := range lines {
		if line[0] == '6' {
			ids = append(ids, strings.TrimSpace(line[39:54]))
		}
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.ElementsMatch(t, []string{
		achIndividualID("CONTRACTOR-2024-0001"),
		achIndividualID("CONTRACTOR-2024-0002"),
	}, ids)
}

func TestExportService_NothingToPayWritesFileWithoutBatch(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t, nil)
	item := testItem("E-1", "Ada Lovelace", "021000021")
	item.Breakdown.Net = decimal.Zero
	f.seedRun(t, payroll.RunStatusApproved, item)

	resp, err := f.svc.ExportRun(ctx, payroll.ExportRunRequest{RunID: "run-1"})
	require.NoError(t, err)

	ach, err := os.ReadFile(filepath.Join(f.base, resp.NACHAPath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(ach), "\r\n"), "\r\n")
	require.Len(t, lines, 10)
	assert.Equal(t, byte('1'), lines[0][0])
	assert.Equal(t, byte('9'), lines[1][0])
	assert.Equal(t, "000000", lines[1][1:7])
}
