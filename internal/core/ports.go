package core

import (
	"context"
	"time"
)

// CouponRepository defines the interface for one coupon pool (a variant).
// Allocate and ConsumeByCode must apply the used_count < total_count guard
// and the increment as one indivisible store operation.
type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	Update(ctx context.Context, coupon *Coupon) error
	GetByID(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, search string, page, limit int) ([]*Coupon, int64, error)
	ListAll(ctx context.Context, filter CouponReportFilter) ([]*Coupon, error)

	// Allocate picks any one active coupon with remaining inventory and
	// atomically increments its used count. Selection among eligible
	// coupons is arbitrary; callers must not depend on ordering.
	Allocate(ctx context.Context) (*Coupon, error)

	// ConsumeByCode atomically increments the used count of one coupon,
	// identified by normalized code, under the same inventory guard.
	ConsumeByCode(ctx context.Context, code string) (*Coupon, error)

	SetMinAmountAll(ctx context.Context, minAmount int) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	RecordAssignment(ctx context.Context, assignment *CouponAssignment) error
}

// BillRepository defines the interface for bill data access
type BillRepository interface {
	Create(ctx context.Context, bill *Bill) error
	GetByID(ctx context.Context, id string) (*Bill, error)
	GetLatestByPhone(ctx context.Context, phone string) (*Bill, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*Bill, error)
	List(ctx context.Context, filter BillFilter, page, limit int) ([]*Bill, int64, error)
	ListAll(ctx context.Context, filter BillFilter) ([]*Bill, error)
}

// FeedbackRepository defines the interface for feedback data access.
// ListFiltered applies search and date-range filters and returns all
// matches newest first; the join and store filter happen in the service.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *Feedback) error
	GetByID(ctx context.Context, id string) (*Feedback, error)
	SetReply(ctx context.Context, id, reply string) (*Feedback, error)
	ListFiltered(ctx context.Context, search string, from, to *time.Time) ([]*Feedback, error)
}

// OTPStore holds at most one live code per phone; Put overwrites any
// previous code for the same phone.
type OTPStore interface {
	Put(ctx context.Context, phone, code string) error
	Get(ctx context.Context, phone string) (string, error)
	Delete(ctx context.Context, phone string) error
}

// AdminUserRepository defines the interface for credential storage
type AdminUserRepository interface {
	Create(ctx context.Context, user *AdminUser) error
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
	Update(ctx context.Context, user *AdminUser) error
}

// SMSGateway defines the interface for the external SMS provider. Delivery
// is best-effort from the caller's point of view: primary writes must stand
// when a send fails.
type SMSGateway interface {
	SendBillLink(ctx context.Context, phone, billURL string) error
	SendOTP(ctx context.Context, phone, code string) error
	SendText(ctx context.Context, phone, message string) error
}
