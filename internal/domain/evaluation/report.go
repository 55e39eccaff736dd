package evaluation

import (
	"context"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"hrreview/internal/domain/auth"
	"hrreview/internal/platform/apperr"
)

// Report writes a PDF summary of the evaluation to w.
func (s *Service) Report(ctx context.Context, actor auth.Actor, id string, w io.Writer) error {
	ev, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	feedback, err := s.Store.ListFeedback(ctx, id)
	if err != nil {
		return err
	}
	pdi, err := s.Store.ListPDI(ctx, id)
	if err != nil {
		return err
	}
	if err := WriteReport(w, ev, feedback, pdi); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to render report", err)
	}
	return nil
}

func WriteReport(w io.Writer, ev Evaluation, feedback []Feedback, pdi []PDIItem) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Performance Evaluation")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Employee: %s (%s)", ev.EmployeeName, ev.EmployeeCode)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Position: %s  Department: %s", ev.PositionName, ev.Department)))
	pdf.Ln(7)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Period: %s  Status: %s", ev.Period, ev.Status)))
	pdf.Ln(7)
	if ev.SubmittedAt != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Submitted: %s", ev.SubmittedAt.Format("2006-01-02 15:04")))
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Performance score: %.1f / 5.0", ev.PerformanceScore))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Competency", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Category", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 7, "Weight", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "Score", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Weighted", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range ev.Weights.Items() {
		pdf.CellFormat(80, 7, tr(item.CompetencyName), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, item.Category, "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d%%", item.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%.1f", item.Score), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.3f", item.WeightedScore), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	if ev.Comments != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Comments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(ev.Comments), "", "", false)
		pdf.Ln(4)
	}

	if len(feedback) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Feedback")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, f := range feedback {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("[%s] %s", f.Type, f.Content)), "", "", false)
		}
		pdf.Ln(4)
	}

	if len(pdi) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Development plan")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, item := range pdi {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s (%s): %s; timeline %s; responsible %s",
				item.DevelopmentArea, item.Status, item.Actions, item.Timeline, item.Responsible)), "", "", false)
		}
	}

	return pdf.Output(w)
}
