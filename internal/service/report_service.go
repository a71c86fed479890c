package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/export"
)

type reportBuilder interface {
	BuildApprovalReport(ctx context.Context, id string) (export.Dataset, *models.Announcement, error)
}

type reportArchive interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(announcementID, relPath string) (string, time.Time, error)
	Parse(token string) (announcementID, relPath string, expiresAt time.Time, err error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, lines []string) ([]byte, error)
}

// ReportConfig tunes report generation and retention.
type ReportConfig struct {
	LinkBaseURL  string
	RetentionTTL time.Duration
}

// ReportResult carries a rendered report plus its archived download link.
type ReportResult struct {
	Payload     []byte
	Filename    string
	ContentType string
	DownloadURL string
	ExpiresAt   time.Time
}

// ReportDownload is an open handle to an archived report file.
type ReportDownload struct {
	File        *os.File
	Filename    string
	SizeBytes   int64
	ContentType string
}

// ReportService renders approval reports, archives a copy on disk and hands
// out signed download links for the archived files.
type ReportService struct {
	builder reportBuilder
	archive reportArchive
	signer  downloadSigner
	csv     csvRenderer
	pdf     pdfRenderer
	cfg     ReportConfig
	logger  *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(builder reportBuilder, archive reportArchive, signer downloadSigner, cfg ReportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetentionTTL <= 0 {
		cfg.RetentionTTL = 72 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{
		builder: builder,
		archive: archive,
		signer:  signer,
		csv:     csv,
		pdf:     pdf,
		cfg:     cfg,
		logger:  logger,
	}
}

// Generate renders the approval report in the requested format and archives a
// copy behind a signed download link.
func (s *ReportService) Generate(ctx context.Context, announcementID, format string) (*ReportResult, error) {
	format = strings.ToLower(format)
	dataset, announcement, err := s.builder.BuildApprovalReport(ctx, announcementID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		payload, err = s.csv.Render(dataset)
	case "pdf":
		contentType = "application/pdf"
		lines := []string{
			fmt.Sprintf("Maintenance: %s (%s)", announcement.Title, announcement.MaintenanceType),
			fmt.Sprintf("Window starts: %s", announcement.StartAt.UTC().Format(time.RFC3339)),
			fmt.Sprintf("Status: %s", announcement.Status),
		}
		payload, err = s.pdf.Render(dataset, "Approval Report", lines)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to render %s report", format))
	}

	archiveName := fmt.Sprintf("%s/approvals_%s.%s", announcement.ID, time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.archive.Save(archiveName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive report")
	}
	token, expiresAt, err := s.signer.Generate(announcement.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &ReportResult{
		Payload:     payload,
		Filename:    fmt.Sprintf("approvals-%s.%s", announcement.ID, format),
		ContentType: contentType,
		DownloadURL: fmt.Sprintf("%s/reports/%s", strings.TrimRight(s.cfg.LinkBaseURL, "/"), token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Download resolves a signed token to an open handle on the archived file.
// The caller owns the returned file handle.
func (s *ReportService) Download(token string) (*ReportDownload, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	file, err := s.archive.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report is no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		SizeBytes:   info.Size(),
		ContentType: contentType,
	}, nil
}

// Cleanup removes archived reports older than ttl. A non-positive ttl falls
// back to the configured retention.
func (s *ReportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.RetentionTTL
	}
	deleted, err := s.archive.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("removed expired report files", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}
