package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

var billSheetHeader = []string{
	"Invoice Number", "Date", "Time", "Customer Phone",
	"Card Holder", "Store", "Net Payable", "Payment Status",
}

// ExportXLSX renders every bill matching the filter as an xlsx workbook
func (s *BillService) ExportXLSX(ctx context.Context, filter core.BillFilter) (*bytes.Buffer, error) {
	bills, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	if err := workbook.SetSheetRow(sheet, "A1", &billSheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, bill := range bills {
		row := []interface{}{
			bill.TransactionalData.InvoiceNumber,
			bill.TransactionalData.InvDate,
			bill.TransactionalData.InvTime,
			bill.CustomerData.Phone,
			bill.LoyaltyData.CardHolderName,
			bill.StoreData.DisplayAddress,
			bill.BillAmountData.NetPayableAmount,
			bill.PaymentData.Status,
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

// RenderPDF renders one bill as a printable PDF receipt
func (s *BillService) RenderPDF(ctx context.Context, id string) (*bytes.Buffer, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, bill.CompanyData.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, bill.StoreData.DisplayAddress, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Tax Invoice", "B", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	line := func(label, value string) {
		pdf.CellFormat(50, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}
	line("Invoice Number", bill.TransactionalData.InvoiceNumber)
	line("Date", bill.TransactionalData.InvDate)
	line("Time", bill.TransactionalData.InvTime)
	line("Customer Phone", bill.CustomerData.Phone)
	if bill.LoyaltyData.CardHolderName != "" {
		line("Card Holder", bill.LoyaltyData.CardHolderName)
	}
	if bill.PaymentData.Status != "" {
		line("Payment Status", bill.PaymentData.Status)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(50, 9, "Net Payable", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, fmt.Sprintf("%.2f", bill.BillAmountData.NetPayableAmount), "T", 1, "L", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Thank you for shopping with us!", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf, nil
}
