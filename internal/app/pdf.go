package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/litarchive/internal/archive"
	"github.com/hyperifyio/litarchive/internal/normalize"
)

const pdfFamily = "archive"

// WritePDF renders the archive as a reading copy: a title page, then one
// section per collection with bold item titles. fontPath names a UTF-8
// TTF font; without one the core Helvetica font is used and characters
// outside cp1252 are lost.
func WritePDF(a *archive.AuthorArchive, outPath, fontPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if strings.TrimSpace(fontPath) != "" {
		ttf, err := os.ReadFile(fontPath)
		if err != nil {
			return fmt.Errorf("read font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(pdfFamily, "", ttf)
		pdf.AddUTF8FontFromBytes(pdfFamily, "B", ttf)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		family = pdfFamily
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(a.Author, true)
	pdf.SetAuthor(a.Author, true)

	pdf.AddPage()
	pdf.SetFont(family, "B", 22)
	pdf.Ln(60)
	pdf.MultiCell(0, 10, tr(a.Author), "", "C", false)
	pdf.SetFont(family, "", 11)
	pdf.Ln(4)
	pdf.CellFormat(0, 6, tr(a.CollectedAt.Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%d / %d", len(a.Books), a.ItemCount()), "", 1, "C", false, 0, "")

	for _, b := range a.Books {
		pdf.AddPage()
		pdf.SetFont(family, "B", 16)
		pdf.MultiCell(0, 8, tr(b.Title), "", "L", false)
		pdf.SetFont(family, "", 8)
		pdf.WriteLinkString(4, b.URL, b.URL)
		pdf.Ln(8)

		for _, it := range b.Items {
			pdf.SetFont(family, "B", 12)
			pdf.MultiCell(0, 6, tr(it.ItemTitle), "", "L", false)
			pdf.Ln(2)
			pdf.SetFont(family, "", 11)
			for _, para := range normalize.Split(it.Text) {
				pdf.MultiCell(0, 5, tr(para), "", "L", false)
				pdf.Ln(3)
			}
			pdf.Ln(4)
		}
	}
	return pdf.OutputFileAndClose(outPath)
}
