package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/middleware"
	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/service"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/response"
)

type announcementServiceMock struct {
	announcement *models.Announcement
	detail       *dto.AnnouncementDetail
	createErr    error
	statusErr    error
	deleteErr    error
	statusReq    *dto.UpdateStatusRequest
	actor        string
}

func (m *announcementServiceMock) Create(_ context.Context, _ dto.CreateAnnouncementRequest, actor string) (*models.Announcement, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.actor = actor
	return m.announcement, nil
}

func (m *announcementServiceMock) Update(_ context.Context, _ string, _ dto.UpdateAnnouncementRequest, actor string) (*models.Announcement, error) {
	m.actor = actor
	return m.announcement, nil
}

func (m *announcementServiceMock) Get(context.Context, string) (*dto.AnnouncementDetail, error) {
	if m.detail == nil {
		return nil, appErrors.ErrNotFound
	}
	return m.detail, nil
}

func (m *announcementServiceMock) List(context.Context, dto.AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error) {
	return []models.Announcement{*m.announcement}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *announcementServiceMock) UpdateStatus(_ context.Context, _ string, req dto.UpdateStatusRequest, actor string) (*models.Announcement, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	m.statusReq = &req
	m.actor = actor
	return m.announcement, nil
}

func (m *announcementServiceMock) Delete(context.Context, string) error {
	return m.deleteErr
}

type reportExporterMock struct {
	result *service.ReportResult
	err    error
	format string
}

func (m *reportExporterMock) Generate(_ context.Context, _ string, format string) (*service.ReportResult, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type notificationServiceMock struct {
	result      *dto.DispatchResult
	err         error
	dispatched  []string
	reminded    bool
	customerIDs []string
}

func (m *notificationServiceMock) Dispatch(_ context.Context, announcementID string, customerIDs []string, _ string) (*dto.DispatchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.dispatched = append(m.dispatched, announcementID)
	m.customerIDs = customerIDs
	return m.result, nil
}

func (m *notificationServiceMock) Remind(_ context.Context, announcementID, _ string) (*dto.DispatchResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.reminded = true
	return m.result, nil
}

func testAnnouncement() *models.Announcement {
	return &models.Announcement{
		ID:              "ann-1",
		Title:           "Database patching",
		MaintenanceType: models.MaintenancePatch,
		StartAt:         time.Now().Add(24 * time.Hour),
		Status:          models.StatusDraft,
	}
}

func operatorContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "usr-1", Email: "ops@example.com", Role: models.RoleOperator})
	return c, w
}

func TestAnnouncementHandlerCreate(t *testing.T) {
	svc := &announcementServiceMock{announcement: testAnnouncement()}
	handler := NewAnnouncementHandler(svc, &notificationServiceMock{}, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPost, "/announcements", dto.CreateAnnouncementRequest{
		Title:           "Database patching",
		MaintenanceType: "PATCH",
		StartAt:         time.Now().Add(24 * time.Hour),
	})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ops@example.com", svc.actor)
}

func TestAnnouncementHandlerCreateInvalidBody(t *testing.T) {
	handler := NewAnnouncementHandler(&announcementServiceMock{}, &notificationServiceMock{}, &reportExporterMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/announcements", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnnouncementHandlerUpdateStatus(t *testing.T) {
	svc := &announcementServiceMock{announcement: testAnnouncement()}
	handler := NewAnnouncementHandler(svc, &notificationServiceMock{}, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPatch, "/announcements/ann-1/status", dto.UpdateStatusRequest{Status: "SCHEDULED"})
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.statusReq)
	assert.Equal(t, "SCHEDULED", svc.statusReq.Status)
}

func TestAnnouncementHandlerUpdateStatusConflict(t *testing.T) {
	svc := &announcementServiceMock{statusErr: appErrors.ErrInvalidTransition}
	handler := NewAnnouncementHandler(svc, &notificationServiceMock{}, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPatch, "/announcements/ann-1/status", dto.UpdateStatusRequest{Status: "COMPLETED"})
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestAnnouncementHandlerSendNotifications(t *testing.T) {
	notifications := &notificationServiceMock{result: &dto.DispatchResult{Sent: 2, Failed: 1}}
	handler := NewAnnouncementHandler(&announcementServiceMock{announcement: testAnnouncement()}, notifications, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPost, "/announcements/ann-1/notifications", dto.SendNotificationsRequest{CustomerIDs: []string{"cus-1"}})
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.SendNotifications(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ann-1"}, notifications.dispatched)
	assert.Equal(t, []string{"cus-1"}, notifications.customerIDs)
}

func TestAnnouncementHandlerSendNotificationsEmptyBody(t *testing.T) {
	notifications := &notificationServiceMock{result: &dto.DispatchResult{}}
	handler := NewAnnouncementHandler(&announcementServiceMock{announcement: testAnnouncement()}, notifications, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPost, "/announcements/ann-1/notifications", nil)
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.SendNotifications(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, notifications.customerIDs)
}

func TestAnnouncementHandlerSendReminders(t *testing.T) {
	notifications := &notificationServiceMock{result: &dto.DispatchResult{Sent: 1}}
	handler := NewAnnouncementHandler(&announcementServiceMock{announcement: testAnnouncement()}, notifications, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodPost, "/announcements/ann-1/reminders", nil)
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.SendReminders(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, notifications.reminded)
}

func TestAnnouncementHandlerReportCSV(t *testing.T) {
	reports := &reportExporterMock{result: &service.ReportResult{
		Payload:     []byte("Customer,Status\nAcme,APPROVED\n"),
		Filename:    "approvals-ann-1.csv",
		ContentType: "text/csv",
		DownloadURL: "https://status.example.com/reports/tok-9",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	handler := NewAnnouncementHandler(&announcementServiceMock{announcement: testAnnouncement()}, &notificationServiceMock{}, reports)
	c, w := operatorContext(t, http.MethodGet, "/announcements/ann-1/report?format=csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.Report(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", reports.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "approvals-ann-1.csv")
	assert.Equal(t, "https://status.example.com/reports/tok-9", w.Header().Get("X-Report-Url"))
	assert.Contains(t, w.Body.String(), "Acme")
}

func TestAnnouncementHandlerReportUnknownFormat(t *testing.T) {
	reports := &reportExporterMock{err: appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")}
	handler := NewAnnouncementHandler(&announcementServiceMock{announcement: testAnnouncement()}, &notificationServiceMock{}, reports)
	c, w := operatorContext(t, http.MethodGet, "/announcements/ann-1/report?format=xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.Report(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", reports.format)
}

func TestAnnouncementHandlerDeleteConflict(t *testing.T) {
	svc := &announcementServiceMock{deleteErr: appErrors.Clone(appErrors.ErrInvalidTransition, "only draft announcements can be deleted")}
	handler := NewAnnouncementHandler(svc, &notificationServiceMock{}, &reportExporterMock{})
	c, w := operatorContext(t, http.MethodDelete, "/announcements/ann-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "ann-1"}}

	handler.Delete(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}
