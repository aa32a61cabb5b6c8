package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/export"
)

func TestExportOrders(t *testing.T) {
	op := "op-1"
	orders := []domain.ServiceOrder{
		{ID: "o-1", CustomerID: "u-1", OperatorID: &op, Status: domain.StatusAtDepot, WasteType: "Aceite usado",
			Quantity: 1.5, Unit: "ton", PickupAddress: "Av. Reforma 1", ScheduledDate: "2026-03-10",
			CreatedAt: time.Date(2026, time.March, 1, 9, 30, 0, 0, time.UTC)},
		{ID: "o-2", CustomerID: "u-2", Status: domain.StatusPlanned, WasteType: "Solventes", Quantity: 80, Unit: "kg"},
	}

	var buf bytes.Buffer
	require.NoError(t, export.XLSX{}.ExportOrders(&buf, orders))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Órdenes")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, export.OrderHeader, rows[0])

	require.Equal(t, "o-1", rows[1][0])
	require.Equal(t, "op-1", rows[1][2])
	require.Equal(t, "AT_DEPOT", rows[1][3])
	require.Equal(t, "50", rows[1][4])
	require.Equal(t, "1500", rows[1][8])
	require.Equal(t, "2026-03-01 09:30", rows[1][12])

	require.Equal(t, "", rows[2][2])
	require.Equal(t, "0", rows[2][4])
}

func TestExportOrders_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.XLSX{}.ExportOrders(&buf, nil))
	require.NotZero(t, buf.Len())
}
