// Package export renders seller data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/pwerioflow/link/internal/domain"
)

// ContentTypeXLSX is the media type of an .xlsx workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

var orderHeaders = []string{
	"ID", "CreatedAt", "Status", "Amount", "Currency", "CustomerEmail", "SessionID",
}

// OrdersXLSX writes orders to w as a single-sheet workbook. Amounts are
// converted from cents to major units.
func OrdersXLSX(w io.Writer, orders []domain.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range orderHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(o.CreatedAt.UTC().Format(timeLayout))
		row.AddCell().SetValue(o.Status)
		row.AddCell().SetValue(decimal.New(o.AmountTotalCents, -2).StringFixed(2))
		row.AddCell().SetValue(o.Currency)
		row.AddCell().SetValue(o.CustomerEmail)
		row.AddCell().SetValue(o.ProviderSessionID)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// OrdersFilename names the export for a seller.
func OrdersFilename(username string) string {
	return fmt.Sprintf("orders-%s.xlsx", username)
}
