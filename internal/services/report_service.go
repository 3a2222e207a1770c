package services

import (
	"context"

	"moni/internal/cache"
	"moni/internal/log"
	"moni/internal/report"
	"moni/internal/sheets"
)

// Renderer produces report documents.
type Renderer interface {
	Render(ctx context.Context, req report.Request) (*report.Document, error)
}

// ReportService caches rendered reports and optionally exports their category
// breakdown to a spreadsheet.
type ReportService struct {
	renderer Renderer
	cache    *cache.Store
	exporter sheets.ReportExporter
	logger   *log.Logger
}

// NewReportService accepts a nil cache and a nil exporter.
func NewReportService(renderer Renderer, c *cache.Store, exporter sheets.ReportExporter, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportService{
		renderer: renderer,
		cache:    c,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentReport),
	}
}

func reportKey(req report.Request) cache.Key {
	return cache.Key{Kind: cache.KindReport, UserID: req.UserID, Period: req.Period().String() + "/" + string(req.Type)}
}

// Generate returns the report for req. Freshly rendered reports are exported
// when an exporter is configured; export failures are logged only.
func (s *ReportService) Generate(ctx context.Context, req report.Request) (*report.Document, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	key := reportKey(req)
	if doc, ok := cache.Get[*report.Document](s.cache, key); ok {
		return doc, nil
	}

	doc, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, doc)
	s.export(ctx, doc)
	return doc, nil
}

func (s *ReportService) export(ctx context.Context, doc *report.Document) {
	if s.exporter == nil || len(doc.Summary.Categories) == 0 {
		return
	}
	rows := ExportRows(doc)
	ref, err := s.exporter.AppendReportRows(ctx, rows)
	if err != nil {
		s.logger.WarnContext(ctx, "Report export failed",
			log.FieldUserID, doc.Request.UserID,
			log.FieldOperation, log.OpExport,
			log.FieldError, err.Error())
		return
	}
	s.logger.InfoContext(ctx, "Report exported",
		log.FieldUserID, doc.Request.UserID,
		log.FieldFilename, doc.Filename,
		"ref", ref)
}

// ExportRows flattens the category breakdown of doc into spreadsheet rows.
func ExportRows(doc *report.Document) []sheets.ReportRow {
	rows := make([]sheets.ReportRow, 0, len(doc.Summary.Categories))
	for _, c := range doc.Summary.Categories {
		rows = append(rows, sheets.ReportRow{
			GeneratedAt: doc.Generated,
			UserID:      doc.Request.UserID,
			Year:        doc.Request.Year,
			Period:      doc.Request.Period().String(),
			Type:        string(doc.Request.Type),
			Category:    c.Name,
			Amount:      c.Total,
			Percentage:  c.Percentage,
		})
	}
	return rows
}
