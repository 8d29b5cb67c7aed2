package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/export"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

type agendaEventSource interface {
	NormalizeRange(from, to mo.Option[string]) recurrence.Range
	ExpandRange(ctx context.Context, familyID string, r recurrence.Range) (recurrence.ExpandResult, error)
}

type familyFinder interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
}

type memberLister interface {
	ListMembers(ctx context.Context, familyID string) ([]models.Member, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportService renders a family's agenda as a downloadable file.
type ExportService struct {
	events   agendaEventSource
	families familyFinder
	members  memberLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers take the
// package defaults.
func NewExportService(events agendaEventSource, families familyFinder, members memberLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{events: events, families: families, members: members, csv: csv, pdf: pdf, logger: logger}
}

// Agenda expands the family's events over the normalised range and renders
// them in the requested format.
func (s *ExportService) Agenda(ctx context.Context, familyID string, format dto.ExportFormat, from, to mo.Option[string]) (*dto.ExportFile, error) {
	format = dto.ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = dto.ExportCSV
	}
	if format != dto.ExportCSV && format != dto.ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	family, err := loadFamily(ctx, s.families, familyID)
	if err != nil {
		return nil, err
	}
	names, err := memberNames(ctx, s.members, familyID)
	if err != nil {
		return nil, err
	}

	r := s.events.NormalizeRange(from, to)
	result, err := s.events.ExpandRange(ctx, familyID, r)
	if err != nil {
		return nil, err
	}
	dataset := export.AgendaDataset(family.Name, r, result.Occurrences, names)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case dto.ExportPDF:
		body, err = s.pdf.Render(dataset)
		contentType = s.pdf.ContentType()
	default:
		body, err = s.csv.Render(dataset)
		contentType = s.csv.ContentType()
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render agenda")
	}

	s.logger.Debug("agenda exported", zap.String("family_id", familyID), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))

	return &dto.ExportFile{
		Filename:    fmt.Sprintf("agenda-%s-%s.%s", r.Start, r.End, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func loadFamily(ctx context.Context, families familyFinder, familyID string) (*models.Family, error) {
	family, err := families.FindByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Internal(err, "failed to load family")
	}
	return family, nil
}

func memberNames(ctx context.Context, members memberLister, familyID string) (map[string]string, error) {
	list, err := members.ListMembers(ctx, familyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load members")
	}
	names := make(map[string]string, len(list))
	for _, m := range list {
		names[m.ID] = m.Name
	}
	return names, nil
}
