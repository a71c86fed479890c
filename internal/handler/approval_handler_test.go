package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/response"
)

type approvalServiceMock struct {
	view       *dto.ApprovalView
	viewErr    error
	approveErr error
	rejectErr  error
	token      string
	actor      string
	reason     string
}

func (m *approvalServiceMock) View(_ context.Context, token string) (*dto.ApprovalView, error) {
	if m.viewErr != nil {
		return nil, m.viewErr
	}
	m.token = token
	return m.view, nil
}

func (m *approvalServiceMock) Approve(_ context.Context, token, actor string) (*models.Recipient, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	m.token = token
	m.actor = actor
	return &models.Recipient{Status: models.RecipientApproved}, nil
}

func (m *approvalServiceMock) Reject(_ context.Context, token, actor, reason string) (*models.Recipient, error) {
	if m.rejectErr != nil {
		return nil, m.rejectErr
	}
	m.token = token
	m.actor = actor
	m.reason = reason
	return &models.Recipient{Status: models.RecipientRejected, RejectionReason: &reason}, nil
}

func approvalContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Params = gin.Params{{Key: "token", Value: "tok-1"}}
	return c, w
}

func TestApprovalHandlerView(t *testing.T) {
	svc := &approvalServiceMock{view: &dto.ApprovalView{
		AnnouncementID: "ann-1",
		Title:          "Database patching",
		Status:         models.RecipientPending,
	}}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodGet, "/approvals/tok-1", nil)

	handler.View(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", svc.token)
}

func TestApprovalHandlerViewExpiredToken(t *testing.T) {
	svc := &approvalServiceMock{viewErr: appErrors.Clone(appErrors.ErrUnauthorized, "approval link is invalid or expired")}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodGet, "/approvals/tok-1", nil)

	handler.View(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApprovalHandlerApprove(t *testing.T) {
	svc := &approvalServiceMock{}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodPost, "/approvals/tok-1/approve", dto.ApproveRequest{Actor: "jane@acme.example"})

	handler.Approve(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jane@acme.example", svc.actor)
}

func TestApprovalHandlerApproveWithoutBody(t *testing.T) {
	svc := &approvalServiceMock{}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodPost, "/approvals/tok-1/approve", nil)

	handler.Approve(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.actor)
}

func TestApprovalHandlerApproveAlreadyDecided(t *testing.T) {
	svc := &approvalServiceMock{approveErr: appErrors.Clone(appErrors.ErrInvalidState, "this approval has already been decided")}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodPost, "/approvals/tok-1/approve", nil)

	handler.Approve(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidState.Code, envelope.Error.Code)
}

func TestApprovalHandlerReject(t *testing.T) {
	svc := &approvalServiceMock{}
	handler := NewApprovalHandler(svc)
	c, w := approvalContext(t, http.MethodPost, "/approvals/tok-1/reject", dto.RejectRequest{
		Reason: "conflicts with billing run",
		Actor:  "jane@acme.example",
	})

	handler.Reject(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conflicts with billing run", svc.reason)
	assert.Equal(t, "jane@acme.example", svc.actor)
}

func TestApprovalHandlerRejectInvalidBody(t *testing.T) {
	handler := NewApprovalHandler(&approvalServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/approvals/tok-1/reject", bytes.NewReader([]byte(`broken`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "tok-1"}}

	handler.Reject(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
