package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"agendaconsole/internal/model"
)

// AppointmentRow is one line of the agenda export, already resolved to
// display names.
type AppointmentRow struct {
	Date         string
	Start        string
	End          string
	Client       string
	Professional string
	Service      string
	Minutes      int
	Notes        string
}

// WriteAgenda writes an XLSX workbook with one sheet named sheet. Headers
// follow the tenant's segment labels.
func WriteAgenda(w io.Writer, sheet string, headers []string, rows []AppointmentRow) error {
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{r.Date, r.Start, r.End, r.Client, r.Professional, r.Service, r.Minutes, r.Notes})
	}
	return writeSheet(w, sheet, headers, values, nil)
}

// StockHeaders are the columns of the stock export.
var StockHeaders = []string{"Produto", "SKU", "Quantidade", "Mínimo", "Situação"}

// WriteStock writes the stock sheet, highlighting items at or below their
// minimum.
func WriteStock(w io.Writer, stocks []model.Stock) error {
	values := make([][]any, 0, len(stocks))
	low := map[int]bool{}
	for i, s := range stocks {
		var minimum any = ""
		if s.MinimumQuantity != nil {
			minimum = *s.MinimumQuantity
		}
		status := "OK"
		if s.Low() {
			status = "Baixo"
			low[i] = true
		}
		values = append(values, []any{s.ProductName, s.SKU, s.Quantity, minimum, status})
	}
	return writeSheet(w, "Estoque", StockHeaders, values, low)
}

func writeSheet(w io.Writer, sheet string, headers []string, rows [][]any, highlight map[int]bool) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = "Planilha"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	var warn int
	if len(highlight) > 0 {
		warn, err = f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FDE68A"}},
		})
		if err != nil {
			return err
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
		if highlight[i] {
			if err := f.SetRowStyle(sheet, i+2, i+2, warn); err != nil {
				return err
			}
		}
	}

	if len(headers) > 0 {
		last, err := excelize.ColumnNumberToName(len(headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
