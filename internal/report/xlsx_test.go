package report_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tariffbench/internal/report"
)

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, report.WriteXLSX(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Line No", rows[0][0])
	assert.Equal(t, "Steel widget", rows[1][4])
}

func TestAppendToLog_CreatesThenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.xlsx")

	require.NoError(t, report.AppendToLog(sampleReport(), path))
	require.NoError(t, report.AppendToLog(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Classifications")
	require.NoError(t, err)
	// Header plus two rows per run.
	require.Len(t, rows, 5)
	assert.Equal(t, "Source", rows[0][0])
	assert.Equal(t, "invoice.pdf", rows[1][0])
	assert.Equal(t, "invoice.pdf", rows[3][0])
}
