package pdf

import "github.com/go-pdf/fpdf"

// writer wraps the document with the letter's text styles.
type writer struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func (w *writer) contentWidth() float64 {
	pageW, _ := w.doc.GetPageSize()
	left, _, right, _ := w.doc.GetMargins()
	return pageW - left - right
}

func (w *writer) header(logo string) {
	left, top, _, _ := w.doc.GetMargins()
	textX := left
	if logo != "" {
		w.doc.ImageOptions(logo, left, top, 0, 18, false, fpdf.ImageOptions{}, 0, "")
		textX = left + 50
	}

	w.doc.SetXY(textX, top+2)
	w.doc.SetFont("Helvetica", "B", 16)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.CellFormat(0, 8, w.tr("NON-BINDING PROPERTY PURCHASE"), "", 1, "L", false, 0, "")
	w.doc.SetX(textX)
	w.doc.SetFont("Helvetica", "", 12)
	w.doc.SetTextColor(90, 90, 90)
	w.doc.CellFormat(0, 6, w.tr("Letter of Offer"), "", 1, "L", false, 0, "")

	w.doc.SetY(top + 22)
	w.rule()
}

func (w *writer) rule() {
	left, _, _, _ := w.doc.GetMargins()
	y := w.doc.GetY()
	w.doc.SetDrawColor(200, 200, 200)
	w.doc.Line(left, y, left+w.contentWidth(), y)
	w.doc.Ln(2)
}

func (w *writer) section(title string) {
	w.doc.Ln(4)
	w.doc.SetFont("Helvetica", "B", 12)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.CellFormat(0, 7, w.tr(title), "B", 1, "L", false, 0, "")
	w.doc.Ln(1)
}

func (w *writer) subtitle(title string) {
	w.doc.SetFont("Helvetica", "B", 10)
	w.doc.SetTextColor(60, 60, 60)
	w.doc.CellFormat(0, lineHeight, w.tr(title), "", 1, "L", false, 0, "")
}

func (w *writer) row(label, value string) {
	w.labelled(label, value, "")
}

func (w *writer) boldRow(label, value string) {
	w.labelled(label, value, "B")
}

func (w *writer) labelled(label, value, style string) {
	w.doc.SetFont("Helvetica", "B", 10)
	w.doc.SetTextColor(80, 80, 80)
	w.doc.CellFormat(labelWidth, lineHeight, w.tr(label), "", 0, "L", false, 0, "")
	w.doc.SetFont("Helvetica", style, 10)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.MultiCell(w.contentWidth()-labelWidth, lineHeight, w.tr(value), "", "L", false)
}

func (w *writer) note(text string) {
	w.doc.SetX(w.doc.GetX() + labelWidth)
	w.doc.SetFont("Helvetica", "I", 9)
	w.doc.SetTextColor(110, 110, 110)
	w.doc.MultiCell(w.contentWidth()-labelWidth, 5, w.tr(text), "", "L", false)
}

func (w *writer) signature(image, name, date string) {
	left, _, _, _ := w.doc.GetMargins()
	boxW := 80.0

	w.doc.Ln(2)
	if image != "" {
		w.doc.ImageOptions(image, left, w.doc.GetY(), 0, 18, true, fpdf.ImageOptions{}, 0, "")
	} else {
		w.doc.SetFont("Helvetica", "I", 9)
		w.doc.SetTextColor(150, 150, 150)
		w.doc.CellFormat(boxW, 18, w.tr("(not signed)"), "", 1, "L", false, 0, "")
	}

	y := w.doc.GetY()
	w.doc.SetDrawColor(0, 0, 0)
	w.doc.Line(left, y, left+boxW, y)
	w.doc.Ln(1)

	w.doc.SetFont("Helvetica", "", 9)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.CellFormat(boxW, 5, w.tr(name+" - Signature"), "", 1, "L", false, 0, "")
	w.doc.SetTextColor(90, 90, 90)
	w.doc.CellFormat(boxW, 5, w.tr("Date: "+date), "", 1, "L", false, 0, "")
}

func (w *writer) disclaimer(text string) {
	w.doc.Ln(6)
	w.doc.SetFillColor(245, 245, 245)
	w.doc.SetFont("Helvetica", "", 8)
	w.doc.SetTextColor(90, 90, 90)
	w.doc.MultiCell(0, 4, w.tr(text), "1", "J", true)
}
