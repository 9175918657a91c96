package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/xuri/excelize/v2"
)

// couponSheetHeader is the export layout
var couponSheetHeader = []string{
	"Coupon Code", "Description", "Discount", "Status",
	"Total Count", "Used Count", "Min Amount", "Created At",
}

// couponImportHeader is the upload contract. Imported coupons are single
// use: totalCount starts at 1, usedCount at 0.
var couponImportHeader = []string{
	"Coupon Code", "Description", "Discount", "Start Date", "End Date", "Status",
}

// Import reads an xlsx workbook and inserts one coupon per data row. Rows
// that fail validation or collide with an existing code are counted and
// skipped; a bad row never aborts the rest of the file.
func (s *CouponService) Import(ctx context.Context, r io.Reader) (*core.ImportResult, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError("file", "workbook has no sheets")
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError("file", "workbook is empty")
	}

	result := &core.ImportResult{}
	for i, row := range rows[1:] { // skip header
		coupon, err := couponFromRow(row)
		if err != nil {
			log.Printf("coupon import: row %d skipped: %v", i+2, err)
			result.Failed++
			continue
		}
		if _, err := s.Create(ctx, coupon); err != nil {
			log.Printf("coupon import: row %d skipped: %v", i+2, err)
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

func couponFromRow(row []string) (*core.Coupon, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	if cell(0) == "" {
		return nil, fmt.Errorf("missing coupon code")
	}
	if cell(1) == "" {
		return nil, fmt.Errorf("missing description")
	}
	status := core.CouponStatus(strings.ToLower(cell(5)))
	if status == "" {
		status = core.CouponStatusActive
	}

	return &core.Coupon{
		Code:              cell(0),
		Description:       cell(1),
		Discount:          cell(2),
		Status:            status,
		TotalCount:        1,
		ValidityStartDate: parseSheetDate(cell(3)),
		ValidityEndDate:   parseSheetDate(cell(4)),
	}, nil
}

// parseSheetDate accepts the date forms spreadsheets commonly hand back;
// anything else is treated as absent rather than failing the row
func parseSheetDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"02/01/2006", "2006-01-02", "01-02-06", "1/2/06 15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// Export renders the full pool as an xlsx workbook
func (s *CouponService) Export(ctx context.Context) (*bytes.Buffer, error) {
	coupons, err := s.repo.ListAll(ctx, core.CouponReportFilter{})
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	if err := workbook.SetSheetRow(sheet, "A1", &couponSheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, coupon := range coupons {
		row := []interface{}{
			coupon.Code,
			coupon.Description,
			coupon.Discount,
			string(coupon.Status),
			coupon.TotalCount,
			coupon.UsedCount,
			coupon.MinAmount,
			coupon.CreatedAt.Format("02/01/2006 15:04"),
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell: %w", err)
		}
		if err := workbook.SetSheetRow(sheet, cellRef, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

// ReportCSV renders the filtered pool as CSV for the admin report download
func (s *CouponService) ReportCSV(ctx context.Context, filter core.CouponReportFilter) (*bytes.Buffer, error) {
	coupons, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"couponCode", "description", "discount", "status", "assignment", "totalCount", "usedCount", "minAmount"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, coupon := range coupons {
		assignment := "Unassigned"
		if coupon.IsAssigned {
			assignment = "Assigned"
		}
		record := []string{
			coupon.Code,
			coupon.Description,
			coupon.Discount,
			string(coupon.Status),
			assignment,
			strconv.Itoa(coupon.TotalCount),
			strconv.Itoa(coupon.UsedCount),
			strconv.Itoa(coupon.MinAmount),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf, nil
}
