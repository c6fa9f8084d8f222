package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"whiteboard/internal/domain"
)

var ErrEmptyContent = errors.New("no content to export")

// HandoutService renders extracted content as a printable PDF.
type HandoutService struct {
	now func() time.Time
}

func NewHandoutService() *HandoutService {
	return &HandoutService{now: time.Now}
}

func (s *HandoutService) Write(w io.Writer, content domain.ExtractedContent) error {
	if content.Empty() {
		return ErrEmptyContent
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Whiteboard Content", true)
	pdf.SetAuthor("Whiteboard Content Extractor", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Whiteboard Content")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Exported %s", s.now().Format("2006-01-02 15:04")))
	pdf.Ln(12)

	if len(content.Text) > 0 {
		s.writeSection(pdf, "Text Content", "Helvetica", content.Text, tr)
	}
	if len(content.Equations) > 0 {
		s.writeSection(pdf, "Equations", "Courier", content.Equations, tr)
	}
	if len(content.Diagrams) > 0 {
		captions := make([]string, 0, len(content.Diagrams))
		for i, d := range content.Diagrams {
			captions = append(captions, fmt.Sprintf("%d. %s (vector graphic, %d bytes)", i+1, d.Caption(), len(d.SVGContent)))
		}
		s.writeSection(pdf, "Diagrams", "Helvetica", captions, tr)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write handout pdf: %w", err)
	}
	return nil
}

func (s *HandoutService) writeSection(pdf *fpdf.Fpdf, title, font string, entries []string, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont(font, "", 12)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pdf.MultiCell(0, 6, tr(entry), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(6)
}
