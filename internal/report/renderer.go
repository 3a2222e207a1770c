package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"moni/internal/ai"
	"moni/internal/core"
	"moni/internal/log"
	"moni/internal/storage"
)

// Document is the rendered statement returned to clients as {html, filename}.
type Document struct {
	HTML     string `json:"html"`
	Filename string `json:"filename"`

	Request    Request   `json:"-"`
	Summary    Summary   `json:"-"`
	Commentary string    `json:"-"`
	AIUsed     bool      `json:"-"`
	Generated  time.Time `json:"-"`
}

type Options struct {
	// Completer is optional; without it the fallback commentary is used.
	Completer Completer
	AITimeout time.Duration
	Logger    *log.Logger
	Now       func() time.Time
}

// Renderer fetches a report window from the store and renders it.
type Renderer struct {
	store     storage.PageLister
	completer Completer
	aiTimeout time.Duration
	tmpl      *template.Template
	printer   *message.Printer
	logger    *log.Logger
	now       func() time.Time
}

// NewRenderer parses report.html from templates.
func NewRenderer(store storage.PageLister, templates fs.FS, opts Options) (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{
		store:     store,
		completer: opts.Completer,
		aiTimeout: opts.AITimeout,
		tmpl:      tmpl,
		printer:   message.NewPrinter(language.MustParse("es-MX")),
		logger:    opts.Logger.WithComponent(log.ComponentReport),
		now:       opts.Now,
	}, nil
}

// Render validates req, fetches every matching transaction, and returns the document.
// Store errors are returned; commentary errors fall back to FallbackCommentary.
func (r *Renderer) Render(ctx context.Context, req Request) (*Document, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	txs, err := storage.FetchAll(ctx, r.store, storage.PeriodFilter(req.UserID, req.Period(), req.Type.TransactionType()))
	if err != nil {
		return nil, fmt.Errorf("fetch report transactions: %w", err)
	}

	summary := Summarize(txs, req.Type)
	commentary, aiUsed := r.commentary(ctx, req, summary)

	doc := &Document{
		Filename:   Filename(req),
		Request:    req,
		Summary:    summary,
		Commentary: commentary,
		AIUsed:     aiUsed,
		Generated:  r.now(),
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "report.html", r.view(doc)); err != nil {
		return nil, fmt.Errorf("render report template: %w", err)
	}
	doc.HTML = buf.String()

	r.logger.InfoContext(ctx, "Report rendered",
		log.FieldUserID, req.UserID,
		log.FieldPeriod, req.Period().String(),
		log.FieldType, string(req.Type),
		log.FieldCount, len(summary.Rows),
		log.FieldFilename, doc.Filename,
		"ai_commentary", aiUsed)
	return doc, nil
}

func (r *Renderer) commentary(ctx context.Context, req Request, s Summary) (string, bool) {
	if r.completer == nil {
		return FallbackCommentary, false
	}
	ctx, cancel := context.WithTimeout(ctx, r.aiTimeout)
	defer cancel()

	text, err := r.completer.Complete(ctx, []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: Prompt(req, s, r.money)},
	})
	if err != nil {
		r.logger.WarnContext(ctx, "Report commentary unavailable, using fallback",
			log.FieldUserID, req.UserID, log.FieldError, err.Error())
		return FallbackCommentary, false
	}
	return text, true
}

func (r *Renderer) money(v float64) string {
	return r.printer.Sprintf("$%.2f", v)
}

func (r *Renderer) percent(v float64) string {
	return r.printer.Sprintf("%.1f%%", v)
}

type viewCategory struct {
	Name, Amount, Percentage, Color string
}

type viewRow struct {
	Date, Description, Category, Type, TypeLabel, Amount string
}

type view struct {
	Title        string
	PeriodLabel  string
	GeneratedAt  string
	Accent       string
	PaletteName  string
	ShowIncome   bool
	ShowExpense  bool
	IncomeTotal  string
	ExpenseTotal string
	Balance      string
	Categories   []viewCategory
	Pie          template.HTML
	Commentary   string
	Rows         []viewRow
}

func (r *Renderer) view(doc *Document) view {
	req, s := doc.Request, doc.Summary
	paletteName, palette := Palette(req.Type)

	v := view{
		Title:        "Reporte de " + typeNoun(req.Type),
		PeriodLabel:  PeriodLabel(req),
		GeneratedAt:  doc.Generated.Format("02/01/2006 15:04"),
		Accent:       palette[0],
		PaletteName:  paletteName,
		ShowIncome:   req.Type != TypeExpense,
		ShowExpense:  req.Type != TypeIncome,
		IncomeTotal:  r.money(floatOf(s.IncomeTotal)),
		ExpenseTotal: r.money(floatOf(s.ExpenseTotal)),
		Balance:      r.money(floatOf(s.Balance)),
		Pie:          PieSVG(PieSlices(s.Categories)),
		Commentary:   doc.Commentary,
	}
	for _, c := range s.Categories {
		v.Categories = append(v.Categories, viewCategory{
			Name:       c.Name,
			Amount:     r.money(floatOf(c.Total)),
			Percentage: r.percent(c.Percentage),
			Color:      c.Color,
		})
	}
	for _, tx := range s.Rows {
		category := tx.CategoryName
		if category == "" {
			category = uncategorized
		}
		label := "Gasto"
		if tx.Type == core.Income {
			label = "Ingreso"
		}
		v.Rows = append(v.Rows, viewRow{
			Date:        tx.Date.Format("02/01/2006"),
			Description: tx.Description,
			Category:    category,
			Type:        string(tx.Type),
			TypeLabel:   label,
			Amount:      r.money(floatOf(tx.Amount)),
		})
	}
	return v
}

func floatOf(d decimal.Decimal) float64 {
	return core.Float(d)
}
