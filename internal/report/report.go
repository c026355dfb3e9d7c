// Package report renders the monitoring PDF report.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/monitor"
)

const (
	title      = "CardioWatch - Monitoring Report"
	disclaimer = "Note: this report was generated automatically by CardioWatch from the data " +
		"collected by the biosensor. Consult a physician for a clinical diagnosis."
)

type color struct{ r, g, b int }

var (
	black = color{0, 0, 0}
	red   = color{255, 0, 0}
	green = color{0, 128, 0}
)

// line is one rendered text line.
type line struct {
	text  string
	color color
}

// section is a headed block of lines.
type section struct {
	heading string
	lines   []line
}

// Generate writes the PDF report for a to w.
func Generate(w io.Writer, a *monitor.Analysis, now time.Time) error {
	if a == nil {
		return errors.Wrap(errors.ErrInsufficientData, "no analysis available")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("cardiowatch", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, "Generated at: "+now.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")
	pdf.Ln(5)

	for _, s := range sections(a) {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(s.heading), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		for _, l := range s.lines {
			pdf.SetTextColor(l.color.r, l.color.g, l.color.b)
			pdf.CellFormat(0, 8, tr(l.text), "", 1, "", false, 0, "")
		}
		pdf.SetTextColor(black.r, black.g, black.b)
		pdf.Ln(10)
	}

	pdf.SetFont("Arial", "I", 10)
	pdf.MultiCell(0, 5, tr(disclaimer), "", "", false)

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "render pdf")
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func sections(a *monitor.Analysis) []section {
	patient := section{
		heading: "Patient",
		lines: []line{
			{text: "Name: " + orNA(a.Profile.Text("name"))},
			{text: "Age: " + orNA(a.Profile.Text("age")) + " years"},
			{text: "Conditions: " + orNA(a.Profile.Text("conditions"))},
		},
	}

	s := a.Summary
	summary := section{
		heading: "Summary (recent history)",
		lines: []line{
			{text: fmt.Sprintf("Readings: %d", s.Count)},
			{text: fmt.Sprintf("Mean BPM: %.1f", s.Mean)},
			{text: fmt.Sprintf("Max BPM: %.0f", s.Max)},
			{text: fmt.Sprintf("Min BPM: %.0f", s.Min)},
			{text: fmt.Sprintf("Median BPM (p50): %.0f", s.P50)},
			{text: fmt.Sprintf("p95 BPM: %.0f", s.P95)},
		},
	}
	switch {
	case !a.Ready:
		summary.lines = append(summary.lines, line{text: "Not enough readings for anomaly detection yet."})
	case s.Anomalies > 0:
		summary.lines = append(summary.lines, line{text: fmt.Sprintf("Anomalies detected: %d", s.Anomalies), color: red})
	default:
		summary.lines = append(summary.lines, line{text: "No anomalies detected in the period.", color: green})
	}

	return []section{patient, summary}
}
