package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
)

// CouponService manages one coupon pool. The same service backs both the
// promotional and reward variants; they differ only in the repository they
// are constructed with and in which operations their routes expose.
type CouponService struct {
	repo core.CouponRepository
	sms  core.SMSGateway
}

// NewCouponService creates a coupon service over one variant repository
func NewCouponService(repo core.CouponRepository, sms core.SMSGateway) *CouponService {
	return &CouponService{repo: repo, sms: sms}
}

// NormalizeCode canonicalizes a coupon code for storage and lookup
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create validates and stores a new coupon
func (s *CouponService) Create(ctx context.Context, coupon *core.Coupon) (*core.Coupon, error) {
	coupon.Code = NormalizeCode(coupon.Code)
	if coupon.Code == "" {
		return nil, core.NewValidationError("couponCode", "coupon code is required")
	}
	if coupon.Description == "" {
		return nil, core.NewValidationError("description", "description is required")
	}
	if coupon.TotalCount <= 0 {
		return nil, core.NewValidationError("totalCount", "total count must be positive")
	}
	if coupon.MinAmount < 0 {
		return nil, core.NewValidationError("minAmount", "minimum amount cannot be negative")
	}
	if coupon.Status == "" {
		coupon.Status = core.CouponStatusActive
	}
	if coupon.Status != core.CouponStatusActive && coupon.Status != core.CouponStatusInactive {
		return nil, core.NewValidationError("status", "status must be active or inactive")
	}
	// A new coupon always starts unused, whatever the caller sent.
	coupon.UsedCount = 0

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update overwrites a coupon's mutable fields
func (s *CouponService) Update(ctx context.Context, coupon *core.Coupon) (*core.Coupon, error) {
	if coupon.ID == "" {
		return nil, core.NewValidationError("id", "coupon id is required")
	}
	coupon.Code = NormalizeCode(coupon.Code)
	if coupon.Code == "" {
		return nil, core.NewValidationError("couponCode", "coupon code is required")
	}

	// The used count only moves through allocation and consumption, so
	// updates carry the stored value forward.
	existing, err := s.repo.GetByID(ctx, coupon.ID)
	if err != nil {
		return nil, err
	}
	coupon.UsedCount = existing.UsedCount
	if coupon.TotalCount < coupon.UsedCount {
		return nil, core.NewValidationError("totalCount", "total count cannot be below used count")
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, coupon.ID)
}

// Get retrieves one coupon by id
func (s *CouponService) Get(ctx context.Context, id string) (*core.Coupon, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of coupons with the shared pagination envelope
func (s *CouponService) List(ctx context.Context, search string, page, limit int) ([]*core.Coupon, *core.Pagination, error) {
	page, limit = normalizePageLimit(page, limit)

	coupons, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, nil, err
	}
	return coupons, newPagination(total, page, limit), nil
}

// Delete removes one coupon
func (s *CouponService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// DeleteAll empties the pool
func (s *CouponService) DeleteAll(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}

// Assign atomically claims one unit of inventory for a customer phone.
// The allocation is the primary write; the assignment audit row and the
// notification SMS both ride behind it and never roll it back.
func (s *CouponService) Assign(ctx context.Context, phone, billID string) (*core.Coupon, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, core.NewValidationError("phone", "phone is required")
	}

	coupon, err := s.repo.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	assignment := &core.CouponAssignment{
		CouponID:   coupon.ID,
		Phone:      phone,
		BillID:     billID,
		AssignedAt: time.Now(),
	}
	if err := s.repo.RecordAssignment(ctx, assignment); err != nil {
		log.Printf("coupon %s allocated but assignment record failed: %v", coupon.Code, err)
	}

	if s.sms != nil {
		go func(code, discount string) {
			smsCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			message := "You have earned a coupon! Use code " + code + " (" + discount + ") on your next visit."
			if err := s.sms.SendText(smsCtx, phone, message); err != nil {
				log.Printf("failed to send coupon sms to %s: %v", phone, err)
			}
		}(coupon.Code, coupon.Discount)
	}

	return coupon, nil
}

// Apply checks whether a code can be redeemed against a bill amount and
// returns the discount terms. It never touches the inventory counters;
// consumption is a separate step, so calling Apply twice is harmless.
func (s *CouponService) Apply(ctx context.Context, code string, billAmount float64) (*core.DiscountTerms, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, core.NewValidationError("couponCode", "coupon code is required")
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon.Status != core.CouponStatusActive {
		return nil, core.ErrCouponInactive
	}
	if coupon.Remaining() <= 0 {
		return nil, core.ErrInventoryExhausted
	}
	if billAmount < float64(coupon.MinAmount) {
		return nil, core.ErrBelowMinimum
	}

	return &core.DiscountTerms{
		Code:        coupon.Code,
		Discount:    coupon.Discount,
		MinAmount:   coupon.MinAmount,
		Description: coupon.Description,
	}, nil
}

// Consume is the settlement step after a successful Apply: it atomically
// burns one unit of the code's inventory
func (s *CouponService) Consume(ctx context.Context, code string) (*core.Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, core.NewValidationError("couponCode", "coupon code is required")
	}
	return s.repo.ConsumeByCode(ctx, code)
}

// SetGlobalMinAmount overwrites the minimum bill amount on every coupon in
// the pool and reports how many records changed
func (s *CouponService) SetGlobalMinAmount(ctx context.Context, minAmount int) (int64, error) {
	if minAmount < 0 {
		return 0, core.NewValidationError("minAmount", "minimum amount cannot be negative")
	}
	return s.repo.SetMinAmountAll(ctx, minAmount)
}

// Report returns the full filtered pool for the admin report surface
func (s *CouponService) Report(ctx context.Context, filter core.CouponReportFilter) ([]*core.Coupon, error) {
	return s.repo.ListAll(ctx, filter)
}

func normalizePageLimit(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func newPagination(total int64, page, limit int) *core.Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return &core.Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}
}
