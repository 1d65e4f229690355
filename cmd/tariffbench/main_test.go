package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tariffbench/internal/domain"
	"tariffbench/internal/port"
	"tariffbench/internal/report"
	"tariffbench/mocks"
)

func testReport() *domain.Report {
	return &domain.Report{
		SourceName: "acme.pdf",
		Rows: []domain.ReportRow{
			{LineNo: 1, Description: "Steel widget", HTSCode: "7326.90.86", Status: domain.StatusOK},
		},
	}
}

func TestPublishReport(t *testing.T) {
	var uploaded []byte
	store := new(mocks.MockObjectStorage)
	store.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		if in.Bucket != "reports" || in.Key != "runs/acme.csv" || in.ContentType != "text/csv" {
			return false
		}
		data, err := io.ReadAll(in.Body)
		if err != nil {
			return false
		}
		uploaded = data
		return true
	})).Return(&port.UploadOutput{Location: "s3://reports/runs/acme.csv"}, nil)

	location, err := publishReport(context.Background(), store, "reports", "runs/acme.csv", testReport())

	require.NoError(t, err)
	assert.Equal(t, "s3://reports/runs/acme.csv", location)
	assert.True(t, bytes.HasPrefix(uploaded, report.BOM))
	assert.Contains(t, string(uploaded), "Steel widget")
	store.AssertExpectations(t)
}

func TestPublishReport_UploadFails(t *testing.T) {
	store := new(mocks.MockObjectStorage)
	store.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := publishReport(context.Background(), store, "reports", "runs/acme.csv", testReport())

	assert.ErrorContains(t, err, "uploading report")
}
