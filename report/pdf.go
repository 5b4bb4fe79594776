package report

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const (
	// FontFamily is registered when the TrueType font loads.
	FontFamily = "IPAexGothic"
	// fallbackFamily is a PDF core font; Japanese glyphs will not render with it.
	fallbackFamily = "Helvetica"

	cellPadding = 6
	ellipsis    = "..."
	pageAlias   = "{nb}"
)

// Options configures a Generator.
type Options struct {
	// FontPath points at a TrueType font with Japanese glyphs, e.g. ipaexg.ttf.
	FontPath string
	Geometry Geometry
	Logger   *zap.Logger
	// Uncompressed leaves page streams readable, for inspection.
	Uncompressed bool
}

// Generator renders report documents. It is safe for concurrent use; every
// Render call builds its own document.
type Generator struct {
	geom         Geometry
	family       string
	fontBytes    []byte
	uncompressed bool
}

// NewGenerator loads the font once. A missing or unusable font is not an error:
// the generator logs a warning and falls back to Helvetica.
func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	geom := opts.Geometry
	if geom.PageHeight == 0 {
		geom = A4Portrait()
	}

	g := &Generator{geom: geom, family: fallbackFamily, uncompressed: opts.Uncompressed}
	if opts.FontPath == "" {
		return g
	}

	b, err := os.ReadFile(opts.FontPath)
	if err != nil {
		logger.Warn("report font unavailable, falling back to Helvetica",
			zap.String("path", opts.FontPath), zap.Error(err))
		return g
	}

	if err := checkFont(b); err != nil {
		logger.Warn("report font rejected, falling back to Helvetica",
			zap.String("path", opts.FontPath), zap.Error(err))
		return g
	}

	logger.Info("report font registered", zap.String("family", FontFamily), zap.String("path", opts.FontPath))
	g.family = FontFamily
	g.fontBytes = b
	return g
}

// checkFont draws a glyph with b on a throwaway document. fpdf only reports an
// unparsable font once it is selected, so registering alone proves nothing.
func checkFont(b []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse font: %v", r)
		}
	}()

	scratch := fpdf.New("P", "pt", "A4", "")
	scratch.AddUTF8FontFromBytes(FontFamily, "", b)
	scratch.AddPage()
	scratch.SetFont(FontFamily, "", 10)
	if scratch.Err() {
		return scratch.Error()
	}
	scratch.Text(10, 20, PlaceholderText)
	if scratch.GetStringWidth(PlaceholderText) <= 0 {
		return errors.New("font has no usable glyph metrics")
	}
	return scratch.Output(io.Discard)
}

// Family returns the font family used for text.
func (g *Generator) Family() string {
	return g.family
}

// Title builds the document heading for a date range.
func Title(appTitle, start, end string) string {
	return fmt.Sprintf("%s / 一覧（%s ～ %s）", appTitle, start, end)
}

// Filename is the attachment name for a date range.
func Filename(start, end string) string {
	return fmt.Sprintf("view-log_%s_%s.pdf", start, end)
}

// Render lays out rows and writes the PDF to w.
func (g *Generator) Render(w io.Writer, title string, rows []Row) error {
	layout := Paginate(rows, g.geom)
	pdf := g.newDocument(title)
	tr := g.translator(pdf)
	geom := layout.Geometry
	cols := geom.Columns()

	for _, page := range layout.Pages {
		pdf.AddPage()

		if page.HasTitle {
			pdf.SetFont(g.family, "", geom.TitleSize)
			pdf.Text(geom.MarginLeft, page.TitleY, fitText(pdf, tr, title, geom.PageWidth-geom.MarginLeft-geom.MarginRight))
		}

		pdf.SetFont(g.family, "", geom.HeaderSize)
		for _, col := range cols {
			pdf.Text(geom.MarginLeft+col.Offset, page.HeaderY, tr(col.Label))
		}
		pdf.Line(geom.MarginLeft, page.RuleY, geom.PageWidth-geom.MarginRight, page.RuleY)

		pdf.SetFont(g.family, "", geom.BodySize)
		for _, p := range page.Rows {
			cells := []string{p.Row.When, p.Row.Affiliation, p.Row.Name}
			for i, col := range cols {
				if cells[i] == "" {
					continue
				}
				pdf.Text(geom.MarginLeft+col.Offset, p.Y, fitText(pdf, tr, cells[i], col.Width-cellPadding))
			}
		}
	}

	if pdf.Err() {
		return fmt.Errorf("render report: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (g *Generator) newDocument(title string) *fpdf.Fpdf {
	geom := g.geom
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: geom.PageWidth, Ht: geom.PageHeight},
	})
	pdf.SetCompression(!g.uncompressed)
	pdf.SetMargins(geom.MarginLeft, geom.MarginTop, geom.MarginRight)
	pdf.SetAutoPageBreak(false, geom.MarginBottom)
	pdf.SetTitle(title, true)
	pdf.SetCreator("viewlog", false)
	if g.fontBytes != nil {
		pdf.AddUTF8FontFromBytes(FontFamily, "", g.fontBytes)
	}
	pdf.SetLineWidth(0.5)

	pdf.AliasNbPages(pageAlias)
	pdf.SetFooterFunc(func() {
		pdf.SetFont(g.family, "", geom.FooterSize)
		label := fmt.Sprintf("%d / %s", pdf.PageNo(), pageAlias)
		x := (geom.PageWidth - pdf.GetStringWidth(label)) / 2
		pdf.Text(x, geom.PageHeight-geom.MarginBottom/2, label)
	})
	return pdf
}

// translator converts UTF-8 to the core font encoding when no TrueType font is loaded.
func (g *Generator) translator(pdf *fpdf.Fpdf) func(string) string {
	if g.fontBytes != nil {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}

// fitText shortens s with an ellipsis until it fits width.
func fitText(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if pdf.GetStringWidth(tr(s)) <= width {
		return tr(s)
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := tr(string(runes[:n]) + ellipsis)
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return tr(ellipsis)
}
