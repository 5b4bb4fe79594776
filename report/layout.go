// Package report lays out and renders the attendance list as a paginated A4 PDF.
//
// Layout is planned first (Paginate) in page coordinates with y measured down from
// the top edge, then drawn by a Generator. Keeping the two apart lets the page
// filling rules be checked without parsing PDF output.
package report

// PlaceholderText fills the first column when a range has no rows.
const PlaceholderText = "該当データはありません"

// Row is one line of the table, already formatted for display.
type Row struct {
	When        string
	Affiliation string
	Name        string
}

// Column is a table column: its header label, x offset from the left margin and width.
type Column struct {
	Label  string
	Offset float64
	Width  float64
}

// Geometry is the fixed page geometry, in points.
type Geometry struct {
	PageWidth    float64
	PageHeight   float64
	MarginLeft   float64
	MarginRight  float64
	MarginTop    float64
	MarginBottom float64

	TitleSize  float64
	HeaderSize float64
	BodySize   float64
	FooterSize float64

	// Vertical advances after the title, after the header labels, after the rule.
	TitleAdvance  float64
	HeaderAdvance float64
	RuleAdvance   float64
	LineHeight    float64

	// BreakReserve is kept free above the bottom margin; the footer lives there.
	BreakReserve float64
}

// A4Portrait is the report geometry: A4, half-inch margins.
func A4Portrait() Geometry {
	return Geometry{
		PageWidth:     595.28,
		PageHeight:    841.89,
		MarginLeft:    36,
		MarginRight:   36,
		MarginTop:     36,
		MarginBottom:  36,
		TitleSize:     14,
		HeaderSize:    11,
		BodySize:      10,
		FooterSize:    8,
		TitleAdvance:  18,
		HeaderAdvance: 12,
		RuleAdvance:   8,
		LineHeight:    14,
		BreakReserve:  40,
	}
}

// BreakLine is the lowest baseline a row may be drawn on.
func (g Geometry) BreakLine() float64 {
	return g.PageHeight - g.MarginBottom - g.BreakReserve
}

// Columns returns the three report columns; the last one takes the remaining width.
func (g Geometry) Columns() []Column {
	content := g.PageWidth - g.MarginLeft - g.MarginRight
	return []Column{
		{Label: "年月日 時分", Offset: 0, Width: 160},
		{Label: "所属", Offset: 160, Width: 200},
		{Label: "氏名", Offset: 360, Width: content - 360},
	}
}

// Placement is a row positioned on a page at baseline Y.
type Placement struct {
	Row Row
	Y   float64
}

// Page is one planned page.
type Page struct {
	HasTitle bool
	TitleY   float64
	HeaderY  float64
	RuleY    float64
	Rows     []Placement
}

// Layout is the full plan for a document.
type Layout struct {
	Geometry Geometry
	Pages    []Page
}

// RowCount returns the number of placed rows across all pages.
func (l Layout) RowCount() int {
	n := 0
	for _, p := range l.Pages {
		n += len(p.Rows)
	}
	return n
}

// Paginate places rows top to bottom. The title goes on the first page only; the
// column header is repeated on every page. When the next baseline would fall below
// the break line a new page is started. An empty input yields one placeholder row.
func Paginate(rows []Row, g Geometry) Layout {
	if len(rows) == 0 {
		rows = []Row{{When: PlaceholderText}}
	}

	cur := Page{HasTitle: true, TitleY: g.MarginTop}
	y := cur.placeHeader(g.MarginTop+g.TitleAdvance, g)

	var pages []Page
	for _, r := range rows {
		if y > g.BreakLine() {
			pages = append(pages, cur)
			cur = Page{}
			y = cur.placeHeader(g.MarginTop, g)
		}
		cur.Rows = append(cur.Rows, Placement{Row: r, Y: y})
		y += g.LineHeight
	}
	pages = append(pages, cur)

	return Layout{Geometry: g, Pages: pages}
}

// placeHeader records header and rule positions starting at y and returns the first body baseline.
func (p *Page) placeHeader(y float64, g Geometry) float64 {
	p.HeaderY = y
	y += g.HeaderAdvance
	p.RuleY = y
	return y + g.RuleAdvance
}
