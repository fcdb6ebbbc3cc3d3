package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/cordonhq/cordon/internal/audit"
)

// Color scheme - professional dark blue theme
var (
	colorPrimary     = [3]int{30, 58, 95}    // Dark navy
	colorAccent      = [3]int{46, 204, 113}  // Green
	colorWarning     = [3]int{241, 196, 15}  // Yellow
	colorDanger      = [3]int{231, 76, 60}   // Red
	colorTextDark    = [3]int{44, 62, 80}    // Dark text
	colorTextMuted   = [3]int{127, 140, 141} // Muted text
	colorTableHeader = [3]int{30, 58, 95}    // Navy header
	colorTableAlt    = [3]int{241, 245, 249} // Alternating row
)

// PDFGenerator renders verdict history as a PDF document.
type PDFGenerator struct{}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Generate creates a PDF report from recorded verdicts, newest first.
func (g *PDFGenerator) Generate(entries []audit.Entry, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)

	pdf.AddPage()
	g.writeHeader(pdf, generatedAt)
	g.writeSummary(pdf, entries)
	g.writeVerdictTable(pdf, entries)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *PDFGenerator) writeHeader(pdf *fpdf.Fpdf, generatedAt time.Time) {
	pageWidth, _ := pdf.GetPageSize()

	// Top accent bar
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 4, "F")

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 10, "Change Governance Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, "Generated "+generatedAt.Format("Jan 02, 2006 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFGenerator) writeSummary(pdf *fpdf.Fpdf, entries []audit.Entry) {
	var approved, escalated, denied int
	for _, e := range entries {
		switch e.Decision {
		case "approved":
			approved++
		case "escalated":
			escalated++
		case "denied":
			denied++
		}
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 7, fmt.Sprintf("%d evaluations: %d approved, %d escalated, %d denied",
		len(entries), approved, escalated, denied), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (g *PDFGenerator) writeVerdictTable(pdf *fpdf.Fpdf, entries []audit.Entry) {
	colWidths := []float64{42, 28, 24, 48, 22, 18, 18, 18, 18, 30}
	headers := []string{"Action ID", "Time", "Action", "Resource", "Decision", "Score", "Infra", "Policy", "Hist", "Cost / Violations"}

	pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 7)

	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 7, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	fill := false

	for _, e := range entries {
		if fill {
			pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(colWidths[0], 6, truncate(e.ActionID, 26), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[1], 6, e.Timestamp.Format("Jan 02 15:04"), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[2], 6, e.ActionType, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[3], 6, truncate(e.ResourceID, 30), "1", 0, "L", fill, 0, "")

		switch e.Decision {
		case "approved":
			pdf.SetTextColor(colorAccent[0], colorAccent[1], colorAccent[2])
		case "escalated":
			pdf.SetTextColor(colorWarning[0], colorWarning[1], colorWarning[2])
		default:
			pdf.SetTextColor(colorDanger[0], colorDanger[1], colorDanger[2])
		}
		pdf.CellFormat(colWidths[4], 6, e.Decision, "1", 0, "C", fill, 0, "")
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])

		pdf.CellFormat(colWidths[5], 6, fmt.Sprintf("%.1f", e.Composite), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[6], 6, fmt.Sprintf("%.1f", e.Infrastructure), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[7], 6, fmt.Sprintf("%.1f", e.Policy), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[8], 6, fmt.Sprintf("%.1f", e.Historical), "1", 0, "C", fill, 0, "")

		last := fmt.Sprintf("%.1f", e.Cost)
		if len(e.ViolatedPolicies) > 0 {
			last = fmt.Sprintf("%.1f / %d violations", e.Cost, len(e.ViolatedPolicies))
		}
		pdf.CellFormat(colWidths[9], 6, last, "1", 0, "C", fill, 0, "")

		pdf.Ln(-1)
		fill = !fill
	}

	if len(entries) == 0 {
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 8, "No verdicts recorded yet.", "", 1, "L", false, 0, "")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
