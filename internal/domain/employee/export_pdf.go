package employee

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var exportColumns = []struct {
	title string
	width float64
	value func(Employee) string
}{
	{"Name", 55, func(e Employee) string { return e.FullName }},
	{"Email", 65, func(e Employee) string { return e.Email }},
	{"Department", 45, func(e Employee) string { return e.Department }},
	{"Role", 50, func(e Employee) string { return e.Role }},
	{"Status", 25, func(e Employee) string { return e.Status }},
	{"Hire date", 27, func(e Employee) string { return e.HireDate }},
}

// ExportPDF writes the filtered directory as a landscape A4 table.
func (s *Service) ExportPDF(ctx context.Context, c Criteria, w io.Writer) (int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	matching := Filter(all, c)
	return len(matching), RenderPDF(w, matching, c, time.Now())
}

func RenderPDF(w io.Writer, list []Employee, c Criteria, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Employee directory", false)
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Cell(0, 10, "Employee directory")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 9)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Generated %s  |  %s", generated.UTC().Format("2006-01-02 15:04 MST"), describeCriteria(c))))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range exportColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 9)
	if len(list) == 0 {
		pdf.Cell(0, 8, "No employees match the current filters.")
	}
	for _, emp := range list {
		for _, col := range exportColumns {
			pdf.CellFormat(col.width, 6, tr(truncate(col.value(emp), col.width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

func describeCriteria(c Criteria) string {
	var parts []string
	if s := strings.TrimSpace(c.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search %q", s))
	}
	if c.Department != "" {
		parts = append(parts, "department "+c.Department)
	}
	if c.Role != "" {
		parts = append(parts, "role "+c.Role)
	}
	if c.Status != "" {
		parts = append(parts, "status "+c.Status)
	}
	if len(parts) == 0 {
		return "all employees"
	}
	return strings.Join(parts, ", ")
}

// truncate keeps text roughly inside a cell of width mm at 9pt.
func truncate(text string, width float64) string {
	limit := int(width / 1.9)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
