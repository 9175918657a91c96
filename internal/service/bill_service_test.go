package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumu-tech/digibill/internal/core"
)

func posBill(phone, invoice, invDate string, amount float64) *core.Bill {
	return &core.Bill{
		CustomerData:      core.CustomerData{Phone: phone},
		TransactionalData: core.TransactionalData{InvoiceNumber: invoice, InvDate: invDate, InvTime: "18:45"},
		StoreData:         core.StoreData{DisplayAddress: "MG Road"},
		CompanyData:       core.CompanyData{Name: "Dumu Retail"},
		BillAmountData:    core.BillAmountData{NetPayableAmount: amount},
	}
}

func TestCreateBillValidation(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, posBill("", "INV-1", "01/06/2025", 100))
	assert.True(t, core.IsValidation(err))

	_, err = svc.Create(ctx, posBill("9900112233", "", "01/06/2025", 100))
	assert.True(t, core.IsValidation(err))
}

func TestCreateBillSurvivesSMSFailure(t *testing.T) {
	repo := setupTestRepo(t)
	gateway := newFakeSMS(true)
	svc := NewBillService(repo.BillRepository(), gateway)
	ctx := context.Background()

	created, err := svc.Create(ctx, posBill("9900112233", "INV-1", "01/06/2025", 100))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	select {
	case <-gateway.done:
	case <-time.After(2 * time.Second):
		t.Fatal("bill link sms was never attempted")
	}

	// The gateway failed, the bill still stands.
	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-1", stored.TransactionalData.InvoiceNumber)
}

func TestListPagination(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		bill := posBill("9900112233", fmt.Sprintf("INV-%02d", i), "01/06/2025", 100)
		bill.CreatedAt = time.Date(2025, 6, 1, 10, 0, i, 0, time.UTC)
		_, err := svc.Create(ctx, bill)
		require.NoError(t, err)
	}

	bills, pagination, err := svc.List(ctx, core.BillFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Len(t, bills, 10)
	assert.Equal(t, int64(25), pagination.Total)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 3, pagination.Pages)

	// Newest first: page 2 starts at the 11th newest.
	assert.Equal(t, "INV-14", bills[0].TransactionalData.InvoiceNumber)
}

func TestMonthlyStats(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)
	ctx := context.Background()

	seed := []struct {
		phone   string
		invDate string
		amount  float64
	}{
		{"111", "01/03/2025", 100},
		{"111", "15/03/2025", 200},
		{"222", "31/03/2025", 300},
		{"333", "28/02/2025", 999}, // previous month, excluded
	}
	for i, s := range seed {
		_, err := svc.Create(ctx, posBill(s.phone, fmt.Sprintf("INV-%d", i), s.invDate, s.amount))
		require.NoError(t, err)
	}

	stats, err := svc.MonthlyStats(ctx, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NumberOfBills)
	assert.Equal(t, 2, stats.NumberOfCustomers)
	assert.Equal(t, 600.0, stats.TotalRevenue)
	assert.Equal(t, 200.0, stats.AverageBillValue)
}

func TestMonthlyStatsEmptyMonth(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)

	stats, err := svc.MonthlyStats(context.Background(), time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NumberOfBills)
	assert.Equal(t, 0, stats.NumberOfCustomers)
	assert.Equal(t, 0.0, stats.TotalRevenue)
	assert.Equal(t, 0.0, stats.AverageBillValue)
}

func TestExportXLSXLayout(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)
	ctx := context.Background()

	bill := posBill("9900112233", "INV-7", "05/06/2025", 450.50)
	bill.LoyaltyData.CardHolderName = "A. Customer"
	bill.PaymentData.Status = "PAID"
	_, err := svc.Create(ctx, bill)
	require.NoError(t, err)

	buf, err := svc.ExportXLSX(ctx, core.BillFilter{})
	require.NoError(t, err)
	assertSheetRow(t, buf, billSheetHeader, []string{
		"INV-7", "05/06/2025", "18:45", "9900112233",
		"A. Customer", "MG Road", "450.5", "PAID",
	})
}

func TestRenderPDFProducesDocument(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewBillService(repo.BillRepository(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, posBill("9900112233", "INV-9", "06/06/2025", 120))
	require.NoError(t, err)

	buf, err := svc.RenderPDF(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, buf.Len() > 0)
	assert.Equal(t, "%PDF", buf.String()[:4])

	_, err = svc.RenderPDF(ctx, "no-such-bill")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
