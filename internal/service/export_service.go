package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/export"
	"github.com/noah-isme/elective-portal-api/pkg/storage"
)

type rosterSource interface {
	ListRoster(ctx context.Context, filter models.SelectionFilter) ([]models.SelectionDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders selection rosters and hands out signed download links.
type ExportService struct {
	roster    rosterSource
	storage   fileStorage
	renderers map[models.ExportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(roster rosterSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		roster:  roster,
		storage: files,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the roster matching req, stores it and returns a signed link.
func (s *ExportService) Generate(ctx context.Context, actor *models.JWTClaims, req models.ExportRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if req.ElectiveID == "" && req.Department == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "electiveId or department is required")
	}
	renderer, ok := s.renderers[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	rows, err := s.roster.ListRoster(ctx, models.SelectionFilter{
		ElectiveID: req.ElectiveID,
		Department: req.Department,
		Semester:   req.Semester,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := rosterDataset(rows, rosterTitle(req))
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(s.filename(req, renderer.Extension()), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	fields := []zap.Field{
		zap.String("export_id", id),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(rows)),
	}
	if actor != nil {
		fields = append(fields, zap.String("actor", actor.UserID))
	}
	s.logger.Info("roster exported", fields...)

	return &models.ExportResult{
		ID:        id,
		Format:    string(req.Format),
		Rows:      len(rows),
		URL:       fmt.Sprintf("%s/selections/exports/download?token=%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and returns the stored path with the
// content type to serve it as.
func (s *ExportService) Resolve(token string) (string, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return "", "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	case err != nil:
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	contentType := "application/octet-stream"
	for _, r := range s.renderers {
		if strings.HasSuffix(relPath, "."+r.Extension()) {
			contentType = r.ContentType()
		}
	}
	return relPath, contentType, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	f, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return f, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// RunCleanup removes expired exports every interval until ctx is cancelled.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Cleanup(0)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

func (s *ExportService) filename(req models.ExportRequest, ext string) string {
	scope := req.ElectiveID
	if scope == "" {
		scope = req.Department
	}
	if req.Semester > 0 {
		scope = fmt.Sprintf("%s_sem%d", scope, req.Semester)
	}
	return fmt.Sprintf("roster_%s_%s.%s", sanitizeFilename(scope), s.now().Format("20060102_150405"), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

var rosterHeaders = []string{"Elective", "Code", "Roll Number", "Student", "Department", "Semester", "Categories", "Track", "Status", "Selected At"}

func rosterDataset(rows []models.SelectionDetail, title string) export.Dataset {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		code := ""
		if row.ElectiveCode != nil {
			code = *row.ElectiveCode
		}
		data = append(data, []string{
			row.ElectiveName,
			code,
			row.RollNumber,
			row.StudentName,
			row.Department,
			strconv.Itoa(row.Semester),
			strings.Join(row.Categories, ", "),
			row.Track,
			string(row.Status),
			row.SelectedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Title: title, Headers: rosterHeaders, Rows: data}
}

func rosterTitle(req models.ExportRequest) string {
	parts := []string{"Elective Roster"}
	if req.Department != "" {
		parts = append(parts, req.Department)
	}
	if req.Semester > 0 {
		parts = append(parts, fmt.Sprintf("Semester %d", req.Semester))
	}
	return strings.Join(parts, " - ")
}
