package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const ordersSheet = "Orders"

var orderHeaders = []string{
	"ID", "Reference", "User ID", "Created At", "Status", "Payment Method",
	"Total (JPY)", "Items", "Name", "Phone", "Postal", "Address 1", "Address 2",
}

// ExportOrdersToExcel writes orders into one workbook under dir and returns
// the file path.
func ExportOrdersToExcel(orders []Order, dir string, now time.Time) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	for col, header := range orderHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(ordersSheet, cell, header); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, order := range orders {
		data := []any{
			order.ID,
			order.Reference,
			order.UserID,
			order.CreatedAt.Format("2006-01-02 15:04"),
			order.Status,
			order.PaymentMethod,
			order.Total,
			describeLines(order.Lines),
			order.CustomerName,
			order.Phone,
			order.Postal,
			order.Address1,
			order.Address2,
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(ordersSheet, cell, value); err != nil {
				return "", fmt.Errorf("failed to write order %d: %w", order.ID, err)
			}
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(orderHeaders), 1)
		_ = f.SetCellStyle(ordersSheet, "A1", lastHeader, style)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("orders_%s.xlsx", now.Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return path, nil
}

// ExportAllOrdersToExcel dumps every archived order.
func (s *PostgresStorage) ExportAllOrdersToExcel(ctx context.Context, dir string) (string, error) {
	orders, err := s.ListOrders(ctx, 0)
	if err != nil {
		return "", err
	}
	return ExportOrdersToExcel(orders, dir, time.Now())
}

func describeLines(lines Lines) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%s %d円", l.Product, l.Amount))
	}
	return strings.Join(parts, "\n")
}
