package bankadmin

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

type StatementFormat string

const (
	FormatPDF  StatementFormat = "pdf"
	FormatXLSX StatementFormat = "xlsx"
)

func (f StatementFormat) Valid() bool {
	return f == FormatPDF || f == FormatXLSX
}

func (f StatementFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Statement is a point-in-time snapshot of an account and its full history,
// newest transaction first. Every date on it is rendered in UTC.
type Statement struct {
	Issuer       string
	Account      Account
	Transactions []Transaction
	GeneratedAt  time.Time
	Format       StatementFormat
}

// Filename follows Statement_<name>_<nationalID>_<YYYYMMDD>.<ext>.
func (st *Statement) Filename() string {
	clean := strings.NewReplacer(`"`, "", "/", "-", `\`, "-", "\r", "", "\n", "")
	return fmt.Sprintf("Statement_%s_%s_%s.%s",
		clean.Replace(st.Account.Name),
		clean.Replace(st.Account.NationalID),
		st.GeneratedAt.UTC().Format("20060102"),
		st.Format)
}

func (st *Statement) Render(w io.Writer) error {
	switch st.Format {
	case FormatXLSX:
		return st.renderXLSX(w)
	default:
		return st.renderPDF(w)
	}
}

const (
	pdfMargin    = 25.4
	pdfRowHeight = 7.0
)

var pdfTxnCols = []struct {
	title string
	width float64
	align string
}{
	{"Date", 32, "C"},
	{"Type", 30, "C"},
	{"Amount", 26, "C"},
	{"Description", 71.2, "L"},
}

func (st *Statement) renderPDF(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 10, tr(st.Issuer), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Account Statement", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	info := [][2]string{
		{"Account Holder:", st.Account.Name},
		{"National ID:", st.Account.NationalID},
		{"Current Balance:", st.Account.Balance.StringFixed(2)},
		{"Statement Date:", st.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	pdf.SetFontSize(10)
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(211, 211, 211)
		pdf.CellFormat(50, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetFillColor(245, 245, 220)
		pdf.CellFormat(75, 8, tr(row[1]), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Transaction History", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(st.Transactions) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, "No transactions found.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(0, 0, 139)
		pdf.SetTextColor(245, 245, 245)
		for _, col := range pdfTxnCols {
			pdf.CellFormat(col.width, pdfRowHeight+2, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetFillColor(245, 245, 220)
		pdf.SetTextColor(0, 0, 0)
		for _, t := range st.Transactions {
			desc := t.Description
			if desc == "" {
				desc = "N/A"
			}
			cells := []string{
				t.Timestamp.UTC().Format("2006-01-02 15:04"),
				t.Kind.Title(),
				t.Amount.StringFixed(2),
				fitText(pdf, tr(desc), pdfTxnCols[3].width-2),
			}
			for i, col := range pdfTxnCols {
				pdf.CellFormat(col.width, pdfRowHeight, cells[i], "1", 0, col.align, true, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 6, tr("This statement is generated by "+st.Issuer), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

// fitText trims s with an ellipsis until it fits within width at the current font.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if cand := string(runes) + "..."; pdf.GetStringWidth(cand) <= width {
			return cand
		}
	}
	return ""
}

const xlsxSheet = "Statement"

func (st *Statement) renderXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	rows := [][]any{
		{st.Issuer},
		{"Account Statement"},
		{"Account Holder", st.Account.Name},
		{"National ID", st.Account.NationalID},
		{"Current Balance", st.Account.Balance.StringFixed(2)},
		{"Statement Date", st.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{},
		{"Date", "Type", "Amount", "Description"},
	}
	for _, t := range st.Transactions {
		rows = append(rows, []any{
			t.Timestamp.UTC().Format("2006-01-02 15:04"),
			t.Kind.Title(),
			t.Amount.StringFixed(2),
			t.Description,
		})
	}

	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err = f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return err
			}
		}
	}

	widths := map[string]float64{"A": 18, "B": 22, "C": 14, "D": 60}
	for col, width := range widths {
		if err := f.SetColWidth(xlsxSheet, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}
