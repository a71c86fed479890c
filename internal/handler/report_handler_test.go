package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/service"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
)

type reportDownloaderMock struct {
	download *service.ReportDownload
	err      error
	token    string
}

func (m *reportDownloaderMock) Download(token string) (*service.ReportDownload, error) {
	m.token = token
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

func downloadContext(t *testing.T, token string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/reports/"+token, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: token}}
	return c, w
}

func TestReportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals_20260901.csv")
	require.NoError(t, os.WriteFile(path, []byte("Customer,Status\nAcme,APPROVED\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	mock := &reportDownloaderMock{download: &service.ReportDownload{
		File:        file,
		Filename:    "approvals_20260901.csv",
		SizeBytes:   30,
		ContentType: "text/csv",
	}}
	handler := NewReportHandler(mock)
	c, w := downloadContext(t, "tok-1")

	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", mock.token)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "approvals_20260901.csv")
	assert.Contains(t, w.Body.String(), "Acme")
}

func TestReportHandlerDownloadInvalidToken(t *testing.T) {
	mock := &reportDownloaderMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")}
	handler := NewReportHandler(mock)
	c, w := downloadContext(t, "bad-token")

	handler.Download(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
