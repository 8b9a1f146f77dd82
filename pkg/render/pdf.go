package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields printed on a completion certificate.
type CertificateData struct {
	CertificateNumber string
	StudentName       string
	CourseTitle       string
	CompletionDate    time.Time
}

// PDFRenderer renders completion certificates as landscape A4 PDFs.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces the certificate document bytes.
func (r *PDFRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and course title")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 30, 20)
	pdf.AddPage()

	// Border frame.
	pdf.SetDrawColor(26, 35, 126)
	pdf.SetLineWidth(2.5)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.SetXY(180, 16)
	pdf.CellFormat(100, 6, fmt.Sprintf("Certificate No: %s", data.CertificateNumber), "", 0, "R", false, 0, "")

	pdf.SetY(45)
	pdf.SetFont("Times", "B", 32)
	pdf.SetTextColor(26, 35, 126)
	pdf.CellFormat(0, 14, "Certificate of Completion", "", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 14)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "B", 24)
	pdf.SetTextColor(216, 27, 96)
	pdf.CellFormat(0, 12, data.StudentName, "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Arial", "", 14)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Times", "B", 22)
	pdf.SetTextColor(216, 27, 96)
	pdf.CellFormat(0, 12, data.CourseTitle, "", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetDrawColor(216, 27, 96)
	pdf.SetLineWidth(0.6)
	pageWidth, _ := pdf.GetPageSize()
	pdf.Line(pageWidth/4, pdf.GetY(), 3*pageWidth/4, pdf.GetY())

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("Date of Completion: %s", data.CompletionDate.Format("January 02, 2006")), "", 1, "C", false, 0, "")

	pdf.SetY(175)
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 6, "Issued by Etalem Learning Platform", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
