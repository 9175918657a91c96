package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dumu-tech/digibill/internal/core"
)

func rewardCoupon(code string, total, used, minAmount int) *core.Coupon {
	return &core.Coupon{
		Code:        code,
		Description: "reward " + code,
		Discount:    "FLAT 500",
		Status:      core.CouponStatusActive,
		TotalCount:  total,
		UsedCount:   used,
		MinAmount:   minAmount,
	}
}

func TestCreateValidatesAndNormalizes(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.CouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &core.Coupon{Description: "d", TotalCount: 1})
	assert.True(t, core.IsValidation(err))

	_, err = svc.Create(ctx, &core.Coupon{Code: "X", TotalCount: 1})
	assert.True(t, core.IsValidation(err))

	_, err = svc.Create(ctx, &core.Coupon{Code: "X", Description: "d", TotalCount: 0})
	assert.True(t, core.IsValidation(err))

	created, err := svc.Create(ctx, &core.Coupon{Code: "  save10 ", Description: "d", TotalCount: 5})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", created.Code)
	assert.Equal(t, core.CouponStatusActive, created.Status)
	assert.NotEmpty(t, created.ID)
}

func TestCreateStartsUnused(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.CouponRepository(), nil)
	ctx := context.Background()

	// A caller-supplied used count is discarded: fresh coupons always
	// start with their full inventory.
	created, err := svc.Create(ctx, &core.Coupon{Code: "FRESH", Description: "d", TotalCount: 1, UsedCount: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, created.UsedCount)
	assert.Equal(t, 1, created.Remaining())

	stored, err := repo.CouponRepository().GetByCode(ctx, "FRESH")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsedCount)
}

func TestUpdateCannotRewriteUsedCount(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, rewardCoupon("STICKY", 2, 0, 0))
	require.NoError(t, err)
	_, err = repo.RewardCouponRepository().ConsumeByCode(ctx, "STICKY")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, &core.Coupon{
		ID:          created.ID,
		Code:        "STICKY",
		Description: "renamed",
		TotalCount:  3,
		UsedCount:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsedCount)

	// Shrinking the pool below what was already consumed is rejected.
	_, err = svc.Update(ctx, &core.Coupon{ID: created.ID, Code: "STICKY", Description: "renamed", TotalCount: 0})
	assert.True(t, core.IsValidation(err))
}

func TestApplyValidatesWithoutConsuming(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, rewardCoupon("LOYAL500", 5, 0, 1000))
	require.NoError(t, err)

	terms, err := svc.Apply(ctx, "loyal500", 1500)
	require.NoError(t, err)
	assert.Equal(t, "LOYAL500", terms.Code)
	assert.Equal(t, "FLAT 500", terms.Discount)
	assert.Equal(t, 1000, terms.MinAmount)

	// Apply is a pure check: calling it again still succeeds and the
	// counters are untouched.
	_, err = svc.Apply(ctx, "LOYAL500", 1500)
	require.NoError(t, err)
	coupon, err := repo.RewardCouponRepository().GetByCode(ctx, "LOYAL500")
	require.NoError(t, err)
	assert.Equal(t, 0, coupon.UsedCount)
}

func TestApplyFailureTaxonomy(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, rewardCoupon("MINIMUM", 5, 0, 2000))
	require.NoError(t, err)
	_, err = svc.Create(ctx, rewardCoupon("SPENT", 1, 0, 0))
	require.NoError(t, err)
	_, err = repo.RewardCouponRepository().ConsumeByCode(ctx, "SPENT")
	require.NoError(t, err)
	inactive := rewardCoupon("PAUSED", 5, 0, 0)
	inactive.Status = core.CouponStatusInactive
	_, err = svc.Create(ctx, inactive)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "MISSING", 5000)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Apply(ctx, "PAUSED", 5000)
	assert.ErrorIs(t, err, core.ErrCouponInactive)

	_, err = svc.Apply(ctx, "SPENT", 5000)
	assert.ErrorIs(t, err, core.ErrInventoryExhausted)

	_, err = svc.Apply(ctx, "MINIMUM", 1999)
	assert.ErrorIs(t, err, core.ErrBelowMinimum)
}

func TestConsumeSettlesInventory(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, rewardCoupon("SETTLE", 1, 0, 0))
	require.NoError(t, err)

	coupon, err := svc.Consume(ctx, "settle")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsedCount)

	_, err = svc.Consume(ctx, "SETTLE")
	assert.ErrorIs(t, err, core.ErrInventoryExhausted)
}

func TestAssignAllocatesAndNotifies(t *testing.T) {
	repo := setupTestRepo(t)
	gateway := newFakeSMS(false)
	svc := NewCouponService(repo.CouponRepository(), gateway)
	ctx := context.Background()

	_, err := svc.Create(ctx, &core.Coupon{Code: "GIFT", Description: "d", Discount: "15% OFF", TotalCount: 2})
	require.NoError(t, err)

	coupon, err := svc.Assign(ctx, "9900112233", "")
	require.NoError(t, err)
	assert.Equal(t, "GIFT", coupon.Code)
	assert.Equal(t, 1, coupon.UsedCount)

	select {
	case <-gateway.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification sms was never attempted")
	}
	messages := gateway.messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "GIFT")
}

func TestSetGlobalMinAmountRejectsNegative(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)

	_, err := svc.SetGlobalMinAmount(context.Background(), -1)
	assert.True(t, core.IsValidation(err))
}

func buildCouponWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	require.NoError(t, workbook.SetSheetRow(sheet, "A1", &couponImportHeader))
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, workbook.SetSheetRow(sheet, cellRef, &row))
	}
	buf, err := workbook.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportCountsGoodAndBadRows(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.CouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &core.Coupon{Code: "TAKEN", Description: "d", TotalCount: 1})
	require.NoError(t, err)

	buf := buildCouponWorkbook(t, [][]interface{}{
		{"FRESH1", "first import", "5% OFF", "01/06/2025", "30/06/2025", "active"},
		{"FRESH2", "second import", "10% OFF", "", "", ""},
		{"", "missing code", "5% OFF", "", "", "active"},
		{"TAKEN", "duplicate code", "5% OFF", "", "", "active"},
	})

	result, err := svc.Import(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)

	// Imported coupons are single use with the sheet's validity window.
	coupon, err := repo.CouponRepository().GetByCode(ctx, "FRESH1")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.TotalCount)
	assert.Equal(t, 0, coupon.UsedCount)
	require.NotNil(t, coupon.ValidityStartDate)
	assert.True(t, coupon.ValidityStartDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	defaulted, err := repo.CouponRepository().GetByCode(ctx, "FRESH2")
	require.NoError(t, err)
	assert.Equal(t, core.CouponStatusActive, defaulted.Status)
	assert.Nil(t, defaulted.ValidityStartDate)
}

func TestExportLayout(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.CouponRepository(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &core.Coupon{Code: "EXPORTED", Description: "exported coupon", Discount: "25% OFF", TotalCount: 7})
	require.NoError(t, err)

	buf, err := svc.Export(ctx)
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows(workbook.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, couponSheetHeader, rows[0])
	assert.Equal(t, "EXPORTED", rows[1][0])
	assert.Equal(t, "25% OFF", rows[1][2])
}

func TestReportCSVHonorsFilters(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewCouponService(repo.RewardCouponRepository(), nil)
	ctx := context.Background()

	keep := rewardCoupon("KEEP", 5, 0, 100)
	keep.Description = `flat 500, "members only"`
	_, err := svc.Create(ctx, keep)
	require.NoError(t, err)
	inactive := rewardCoupon("DROP", 5, 0, 100)
	inactive.Status = core.CouponStatusInactive
	_, err = svc.Create(ctx, inactive)
	require.NoError(t, err)

	buf, err := svc.ReportCSV(ctx, core.CouponReportFilter{Status: "active"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "KEEP")
	assert.NotContains(t, out, "DROP")
	// Commas and quotes in descriptions are escaped, not mangled.
	assert.Contains(t, out, `"flat 500, ""members only"""`)
}
