package core

import (
	"encoding/json"
	"time"
)

// CouponStatus represents whether a coupon can currently be issued or redeemed
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusInactive CouponStatus = "inactive"
)

// CouponVariant selects between the two parallel coupon pools
type CouponVariant string

const (
	VariantPromotional CouponVariant = "coupons"
	VariantReward      CouponVariant = "reward_coupons"
)

// Coupon represents one coupon pool entry. Both variants share the shape;
// MinAmount is only meaningful for the reward variant.
type Coupon struct {
	ID          string       `json:"id"`
	Code        string       `json:"couponCode"`
	Description string       `json:"description"`
	Discount    string       `json:"discount"` // free-form, e.g. "20% OFF"
	Status      CouponStatus `json:"status"`
	TotalCount  int          `json:"totalCount"`
	UsedCount   int          `json:"usedCount"`
	IsAssigned  bool         `json:"isAssigned"`
	MinAmount   int          `json:"minAmount"`

	// Stored but not checked by any validation path.
	ValidityStartDate *time.Time `json:"validityStartDate,omitempty"`
	ValidityEndDate   *time.Time `json:"validityEndDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Remaining is derived from the counters and never persisted.
func (c *Coupon) Remaining() int {
	return c.TotalCount - c.UsedCount
}

// CouponAssignment records one unit of promotional inventory handed to a phone number
type CouponAssignment struct {
	ID         string    `json:"id"`
	CouponID   string    `json:"coupon_id"`
	Phone      string    `json:"phone"`
	BillID     string    `json:"bill_id,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// DiscountTerms is the read-only result of a successful coupon apply
type DiscountTerms struct {
	Code        string `json:"code"`
	Discount    string `json:"discount"`
	MinAmount   int    `json:"minAmount"`
	Description string `json:"description"`
}

// ImportResult reports per-row outcomes of a bulk coupon import
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// CouponReportFilter carries the nested filters of the reward-coupon report.
// Assignment is "Any", "Assigned" or "Unassigned".
type CouponReportFilter struct {
	Status      string `json:"status"`
	Assignment  string `json:"assignment"`
	CouponCode  string `json:"couponCode"`
	Description string `json:"description"`
}

// CustomerData is the customer group of a bill document
type CustomerData struct {
	Phone string `json:"phone"`
}

// TransactionalData holds invoice identifiers. InvDate is a DD/MM/YYYY
// display string, not a native date.
type TransactionalData struct {
	InvoiceNumber string `json:"invoiceNumber"`
	InvDate       string `json:"invDate"`
	InvTime       string `json:"invTime"`
}

// LoyaltyData is the loyalty group of a bill document
type LoyaltyData struct {
	CardHolderName string `json:"cardHolderName"`
}

// StoreData is the store group of a bill document
type StoreData struct {
	DisplayAddress string `json:"displayAddress"`
}

// CompanyData is the company group of a bill document
type CompanyData struct {
	Name string `json:"name"`
}

// BillAmountData is the amount group of a bill document
type BillAmountData struct {
	NetPayableAmount float64 `json:"netPayableAmount"`
}

// PaymentData is the payment group of a bill document
type PaymentData struct {
	Status string `json:"status"`
}

// Bill is a digital bill created once per POS transaction. The named groups
// are the searchable subset; Payload keeps the full document as received.
type Bill struct {
	ID                string            `json:"id"`
	CustomerData      CustomerData      `json:"customerData"`
	TransactionalData TransactionalData `json:"transactionalData"`
	LoyaltyData       LoyaltyData       `json:"loyaltyData"`
	StoreData         StoreData         `json:"storeData"`
	CompanyData       CompanyData       `json:"companyData"`
	BillAmountData    BillAmountData    `json:"billAmountData"`
	PaymentData       PaymentData       `json:"paymentData"`
	Payload           json.RawMessage   `json:"payload,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// BillFilter carries the listing/export query parameters
type BillFilter struct {
	Search   string
	Store    string
	FromDate string // YYYY-MM-DD
	ToDate   string // YYYY-MM-DD
}

// MonthlyStats summarizes the current calendar month's bills
type MonthlyStats struct {
	NumberOfCustomers int     `json:"numberOfCustomers"`
	NumberOfBills     int     `json:"numberOfBills"`
	TotalRevenue      float64 `json:"totalRevenue"`
	AverageBillValue  float64 `json:"averageBillValue"`
}

// Pagination is the envelope shared by all listing endpoints
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// Feedback is a customer's feedback on a bill. BillID is stored as raw text
// and may be a bare id or a legacy wrapped form; see NormalizeBillRef.
type Feedback struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Stars     int       `json:"stars"`
	Reply     *string   `json:"reply"`
	BillID    string    `json:"bill_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FeedbackWithBill decorates a feedback record with fields re-derived from
// its joined bill. Both are nil when the reference does not resolve.
type FeedbackWithBill struct {
	Feedback
	StoreName     *string `json:"storeName"`
	InvoiceNumber *string `json:"invoiceNumber"`
}

// FeedbackFilter carries the feedback listing/export query parameters
type FeedbackFilter struct {
	Search   string
	Store    string
	FromDate string // YYYY-MM-DD
	ToDate   string // YYYY-MM-DD
}

// AdminUser is a console or POS credential
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles carried in JWT claims.
const (
	RoleAdmin   = "ADMIN"
	RoleBilling = "BILLING"
)
