// Package spreadsheet exports agenda and stock data to XLSX and imports
// client lists from XLS/XLSX uploads.
package spreadsheet

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"agendaconsole/internal/model"
)

// maxRows caps what is read from a legacy .xls workbook.
const maxRows = 100000

// ReadRows returns the cells of the single worksheet in an upload. Legacy
// .xls files go through the BIFF reader; anything else is treated as XLSX.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		if workbook.NumSheets() > 1 {
			return nil, fmt.Errorf("multiple worksheets found; upload a file with a single sheet")
		}
		rows := workbook.ReadAllCells(maxRows)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}
}

// RowError reports a skipped line of an import. Line is 1-based, as shown
// by spreadsheet programs.
type RowError struct {
	Line   int
	Reason string
}

var clientColumns = map[string][]string{
	"name":    {"nome", "name", "cliente", "nome completo"},
	"email":   {"email", "e-mail"},
	"phone":   {"telefone", "phone", "celular", "whatsapp"},
	"cnpjcpf": {"cpf", "cnpj", "cnpjcpf", "cpf/cnpj", "documento"},
}

// ParseClients reads a client list. Name and e-mail columns are required;
// rows missing either are reported and skipped. Fully blank rows are ignored.
func ParseClients(reader io.Reader, filename string) ([]model.Client, []RowError, error) {
	rows, err := ReadRows(reader, filename)
	if err != nil {
		return nil, nil, err
	}

	headerIndex := map[string]int{}
	for i, header := range rows[0] {
		headerIndex[normalizeHeader(header)] = i
	}
	col := func(key string) int {
		for _, alias := range clientColumns[key] {
			if idx, ok := headerIndex[alias]; ok {
				return idx
			}
		}
		return -1
	}

	nameIdx, emailIdx := col("name"), col("email")
	if nameIdx == -1 {
		return nil, nil, fmt.Errorf("missing required column: nome")
	}
	if emailIdx == -1 {
		return nil, nil, fmt.Errorf("missing required column: email")
	}
	phoneIdx, docIdx := col("phone"), col("cnpjcpf")

	var (
		clients []model.Client
		skipped []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}
		c := model.Client{
			Name:    cellValue(row, nameIdx),
			Email:   strings.ToLower(cellValue(row, emailIdx)),
			Phone:   cellValue(row, phoneIdx),
			CnpjCpf: cellValue(row, docIdx),
		}
		switch {
		case c.Name == "":
			skipped = append(skipped, RowError{Line: line, Reason: "nome vazio"})
		case !strings.Contains(c.Email, "@"):
			skipped = append(skipped, RowError{Line: line, Reason: "email inválido"})
		default:
			clients = append(clients, c)
		}
	}
	return clients, skipped, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
