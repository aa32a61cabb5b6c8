// Package export renders service orders as spreadsheets for the admin panel.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/lifecycle"
	"github.com/trabamex/mir-bff-go/internal/usage"
)

const sheetName = "Órdenes"

// OrderHeader lists the exported columns in order.
var OrderHeader = []string{
	"ID",
	"Cliente",
	"Operador",
	"Estado",
	"Progreso %",
	"Tipo de residuo",
	"Cantidad",
	"Unidad",
	"Cantidad (kg)",
	"Plan",
	"Dirección de recolección",
	"Fecha programada",
	"Creada",
}

var columnWidths = []float64{38, 38, 38, 22, 12, 24, 12, 8, 14, 38, 40, 16, 22}

// XLSX implements port.OrderExporter with excelize.
type XLSX struct{}

func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSX) Extension() string { return "xlsx" }

// ExportOrders writes a single-sheet workbook with one row per order.
func (XLSX) ExportOrders(w io.Writer, orders []domain.ServiceOrder) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2F0D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, len(OrderHeader))
	for i, h := range OrderHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(OrderHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := orderRow(o)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func orderRow(o domain.ServiceOrder) []any {
	return []any{
		o.ID,
		o.CustomerID,
		deref(o.OperatorID),
		string(o.Status),
		lifecycle.Progress(o.Status),
		o.WasteType,
		o.Quantity,
		o.Unit,
		usage.ToKg(o.Quantity, o.Unit),
		deref(o.PlanID),
		o.PickupAddress,
		o.ScheduledDate,
		o.CreatedAt.UTC().Format("2006-01-02 15:04"),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
