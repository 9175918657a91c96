package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// invDateExpr rearranges the stored DD/MM/YYYY invoice date into a sortable
// YYYYMMDD string. SQL substr is 1-indexed: chars 7-10 year, 4-5 month,
// 1-2 day.
const invDateExpr = "substr(inv_date, 7, 4) || substr(inv_date, 4, 2) || substr(inv_date, 1, 2)"

// Repository implements the core repository interfaces using GORM
type Repository struct {
	db                  *gorm.DB
	couponRepository    *couponRepository
	rewardRepository    *couponRepository
	billRepository      *billRepository
	feedbackRepository  *feedbackRepository
	adminUserRepository *adminUserRepository
}

// couponRepository implements CouponRepository for one variant table
type couponRepository struct {
	*Repository
	table string
}

// billRepository implements BillRepository methods
type billRepository struct {
	*Repository
}

// feedbackRepository implements FeedbackRepository methods
type feedbackRepository struct {
	*Repository
}

// adminUserRepository implements AdminUserRepository methods
type adminUserRepository struct {
	*Repository
}

// NewRepository creates a new Postgres repository instance
func NewRepository(dbURL string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewRepositoryWithDB(db), nil
}

// NewRepositoryWithDB wraps an already-open GORM handle (used by tests,
// which run against an in-memory sqlite database)
func NewRepositoryWithDB(db *gorm.DB) *Repository {
	repo := &Repository{db: db}
	repo.couponRepository = &couponRepository{Repository: repo, table: string(core.VariantPromotional)}
	repo.rewardRepository = &couponRepository{Repository: repo, table: string(core.VariantReward)}
	repo.billRepository = &billRepository{Repository: repo}
	repo.feedbackRepository = &feedbackRepository{Repository: repo}
	repo.adminUserRepository = &adminUserRepository{Repository: repo}
	return repo
}

// CouponRepository returns the promotional-variant repository
func (r *Repository) CouponRepository() core.CouponRepository {
	return r.couponRepository
}

// RewardCouponRepository returns the reward-variant repository
func (r *Repository) RewardCouponRepository() core.CouponRepository {
	return r.rewardRepository
}

// BillRepository returns the BillRepository interface implementation
func (r *Repository) BillRepository() core.BillRepository {
	return r.billRepository
}

// FeedbackRepository returns the FeedbackRepository interface implementation
func (r *Repository) FeedbackRepository() core.FeedbackRepository {
	return r.feedbackRepository
}

// AdminUserRepository returns the AdminUserRepository interface implementation
func (r *Repository) AdminUserRepository() core.AdminUserRepository {
	return r.adminUserRepository
}

// AutoMigrate creates or updates the schema for every table the
// repository owns. The coupon model backs both variant tables.
func (r *Repository) AutoMigrate() error {
	if err := r.db.Table(string(core.VariantPromotional)).AutoMigrate(&CouponModel{}); err != nil {
		return fmt.Errorf("failed to migrate coupons: %w", err)
	}
	if err := r.db.Table(string(core.VariantReward)).AutoMigrate(&CouponModel{}); err != nil {
		return fmt.Errorf("failed to migrate reward coupons: %w", err)
	}
	if err := r.db.AutoMigrate(&CouponAssignmentModel{}, &BillModel{}, &FeedbackModel{}, &AdminUserModel{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	// The coupon model backs two tables, so its unique code index is
	// created per table here rather than through a struct tag.
	for _, table := range []string{string(core.VariantPromotional), string(core.VariantReward)} {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_code ON %s(code)", table, table)
		if err := r.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to index %s: %w", table, err)
		}
	}
	return nil
}

// CouponRepository implementation

// isUniqueViolation reports whether err is a unique-constraint failure.
// Postgres reports SQLSTATE 23505; the sqlite driver used in tests only
// exposes the message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new coupon, rejecting duplicate normalized codes
func (r *couponRepository) Create(ctx context.Context, coupon *core.Coupon) error {
	var count int64
	if err := r.db.WithContext(ctx).Table(r.table).
		Where("code = ?", coupon.Code).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check coupon code: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("code %q: %w", coupon.Code, core.ErrDuplicateCode)
	}

	model := CouponModelFromDomain(coupon)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Table(r.table).Create(model).Error; err != nil {
		// Backstop for a concurrent create racing past the pre-check:
		// the unique index on code reports the duplicate instead.
		if isUniqueViolation(err) {
			return fmt.Errorf("code %q: %w", coupon.Code, core.ErrDuplicateCode)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	coupon.ID = model.ID
	coupon.CreatedAt = model.CreatedAt
	coupon.UpdatedAt = model.UpdatedAt
	return nil
}

// Update overwrites the mutable fields of one coupon by id
func (r *couponRepository) Update(ctx context.Context, coupon *core.Coupon) error {
	updates := map[string]interface{}{
		"code":        coupon.Code,
		"description": coupon.Description,
		"discount":    coupon.Discount,
		"status":      string(coupon.Status),
		"total_count": coupon.TotalCount,
		"used_count":  coupon.UsedCount,
		"is_assigned": coupon.IsAssigned,
		"min_amount":  coupon.MinAmount,
		"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if coupon.ValidityStartDate != nil {
		updates["validity_start_date"] = *coupon.ValidityStartDate
	}
	if coupon.ValidityEndDate != nil {
		updates["validity_end_date"] = *coupon.ValidityEndDate
	}

	result := r.db.WithContext(ctx).Table(r.table).
		Where("id = ?", coupon.ID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("coupon %s: %w", coupon.ID, core.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a coupon by its ID
func (r *couponRepository) GetByID(ctx context.Context, id string) (*core.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByCode retrieves a coupon by its normalized code
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*core.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).Table(r.table).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon code %q: %w", code, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return model.ToDomain(), nil
}

// List retrieves a page of coupons, newest first, with an optional
// case-insensitive search over code and description
func (r *couponRepository) List(ctx context.Context, search string, page, limit int) ([]*core.Coupon, int64, error) {
	query := r.db.WithContext(ctx).Table(r.table)
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(code) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	var models []CouponModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	coupons := make([]*core.Coupon, len(models))
	for i := range models {
		coupons[i] = models[i].ToDomain()
	}
	return coupons, total, nil
}

// ListAll retrieves every coupon matching the report filter, newest first
func (r *couponRepository) ListAll(ctx context.Context, filter core.CouponReportFilter) ([]*core.Coupon, error) {
	query := r.db.WithContext(ctx).Table(r.table)

	if filter.Status != "" && !strings.EqualFold(filter.Status, "Any") {
		query = query.Where("status = ?", strings.ToLower(filter.Status))
	}
	if filter.Assignment != "" && !strings.EqualFold(filter.Assignment, "Any") {
		query = query.Where("is_assigned = ?", strings.EqualFold(filter.Assignment, "Assigned"))
	}
	if filter.CouponCode != "" {
		query = query.Where("LOWER(code) LIKE LOWER(?)", "%"+filter.CouponCode+"%")
	}
	if filter.Description != "" {
		query = query.Where("LOWER(description) LIKE LOWER(?)", "%"+filter.Description+"%")
	}

	var models []CouponModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	coupons := make([]*core.Coupon, len(models))
	for i := range models {
		coupons[i] = models[i].ToDomain()
	}
	return coupons, nil
}

// Allocate atomically claims one unit of inventory. The used_count guard is
// part of the UPDATE itself, so two concurrent callers can never both claim
// a coupon whose remaining count was 1: the loser's update matches zero
// rows. Each failed update means that row just hit its cap, so the loop is
// bounded by the number of eligible coupons.
func (r *couponRepository) Allocate(ctx context.Context) (*core.Coupon, error) {
	for {
		var candidate CouponModel
		err := r.db.WithContext(ctx).Table(r.table).
			Where("status = ? AND used_count < total_count", string(core.CouponStatusActive)).
			Order("created_at ASC").
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrInventoryExhausted
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find allocatable coupon: %w", err)
		}

		// The status is re-checked inside the UPDATE so a coupon
		// deactivated after the candidate SELECT cannot be claimed.
		result := r.db.WithContext(ctx).Table(r.table).
			Where("id = ? AND status = ? AND used_count < total_count", candidate.ID, string(core.CouponStatusActive)).
			Updates(map[string]interface{}{
				"used_count": gorm.Expr("used_count + 1"),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if result.Error != nil {
			return nil, fmt.Errorf("failed to allocate coupon: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}

		var claimed CouponModel
		if err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", candidate.ID).First(&claimed).Error; err != nil {
			return nil, fmt.Errorf("failed to reload allocated coupon: %w", err)
		}
		return claimed.ToDomain(), nil
	}
}

// ConsumeByCode atomically consumes one unit of a specific coupon under the
// same inventory guard as Allocate
func (r *couponRepository) ConsumeByCode(ctx context.Context, code string) (*core.Coupon, error) {
	result := r.db.WithContext(ctx).Table(r.table).
		Where("code = ? AND status = ? AND used_count < total_count", code, string(core.CouponStatusActive)).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to consume coupon: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Distinguish why the guard rejected the update.
		coupon, err := r.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if coupon.Status != core.CouponStatusActive {
			return nil, fmt.Errorf("coupon %q: %w", code, core.ErrCouponInactive)
		}
		return nil, core.ErrInventoryExhausted
	}

	return r.GetByCode(ctx, code)
}

// SetMinAmountAll overwrites min_amount on every row of the variant and
// returns the number of modified records
func (r *couponRepository) SetMinAmountAll(ctx context.Context, minAmount int) (int64, error) {
	result := r.db.WithContext(ctx).Table(r.table).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Updates(map[string]interface{}{
			"min_amount": minAmount,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update min amount: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes one coupon by id
func (r *couponRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Delete(&CouponModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("coupon %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every coupon of the variant
func (r *couponRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Table(r.table).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&CouponModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete coupons: %w", err)
	}
	return nil
}

// RecordAssignment stores an assignment row for audit/reporting
func (r *couponRepository) RecordAssignment(ctx context.Context, assignment *core.CouponAssignment) error {
	model := &CouponAssignmentModel{
		ID:         assignment.ID,
		CouponID:   assignment.CouponID,
		Phone:      assignment.Phone,
		AssignedAt: assignment.AssignedAt,
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if assignment.BillID != "" {
		model.BillID = sql.NullString{String: assignment.BillID, Valid: true}
	}
	if err := r.db.WithContext(ctx).Table("coupon_assignments").Create(model).Error; err != nil {
		return fmt.Errorf("failed to record assignment: %w", err)
	}
	return nil
}

// BillRepository implementation

// Create persists a bill with its denormalized search columns
func (r *billRepository) Create(ctx context.Context, bill *core.Bill) error {
	model := BillModelFromDomain(bill)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Table("bills").Create(model).Error; err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	bill.ID = model.ID
	bill.CreatedAt = model.CreatedAt
	return nil
}

// GetByID retrieves a bill by its ID
func (r *billRepository) GetByID(ctx context.Context, id string) (*core.Bill, error) {
	var model BillModel
	if err := r.db.WithContext(ctx).Table("bills").Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return model.ToDomain(), nil
}

// GetLatestByPhone retrieves only the most recently created bill for a phone
func (r *billRepository) GetLatestByPhone(ctx context.Context, phone string) (*core.Bill, error) {
	var model BillModel
	if err := r.db.WithContext(ctx).Table("bills").
		Where("customer_phone = ?", phone).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no bill for phone %s: %w", phone, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bill by phone: %w", err)
	}
	return model.ToDomain(), nil
}

// GetByIDs batch-loads bills keyed by id for the feedback join
func (r *billRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*core.Bill, error) {
	bills := make(map[string]*core.Bill, len(ids))
	if len(ids) == 0 {
		return bills, nil
	}

	var models []BillModel
	if err := r.db.WithContext(ctx).Table("bills").Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to get bills by ids: %w", err)
	}
	for i := range models {
		bills[models[i].ID] = models[i].ToDomain()
	}
	return bills, nil
}

// filtered builds the shared bill filter query: AND across filter groups,
// OR within the text-search group, inclusive date range over the
// rearranged invoice-date string.
func (r *billRepository) filtered(ctx context.Context, filter core.BillFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Table("bills")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"LOWER(invoice_number) LIKE LOWER(?) OR LOWER(customer_phone) LIKE LOWER(?) OR LOWER(card_holder_name) LIKE LOWER(?) OR LOWER(store_display_address) LIKE LOWER(?) OR LOWER(company_name) LIKE LOWER(?)",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	if filter.Store != "" {
		query = query.Where("LOWER(store_display_address) LIKE LOWER(?)", "%"+filter.Store+"%")
	}
	if filter.FromDate != "" {
		query = query.Where(invDateExpr+" >= ?", compactDate(filter.FromDate))
	}
	if filter.ToDate != "" {
		query = query.Where(invDateExpr+" <= ?", compactDate(filter.ToDate))
	}
	return query
}

// List retrieves a page of bills matching the filter, newest first
func (r *billRepository) List(ctx context.Context, filter core.BillFilter, page, limit int) ([]*core.Bill, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	var models []BillModel
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}

	bills := make([]*core.Bill, len(models))
	for i := range models {
		bills[i] = models[i].ToDomain()
	}
	return bills, total, nil
}

// ListAll retrieves every bill matching the filter, newest first (exports
// and monthly stats run unpaginated)
func (r *billRepository) ListAll(ctx context.Context, filter core.BillFilter) ([]*core.Bill, error) {
	var models []BillModel
	if err := r.filtered(ctx, filter).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	bills := make([]*core.Bill, len(models))
	for i := range models {
		bills[i] = models[i].ToDomain()
	}
	return bills, nil
}

// compactDate converts a caller-supplied "YYYY-MM-DD" into "YYYYMMDD"
func compactDate(dateStr string) string {
	return strings.NewReplacer("-", "", "/", "").Replace(dateStr)
}

// FeedbackRepository implementation

// Create persists a feedback record
func (r *feedbackRepository) Create(ctx context.Context, feedback *core.Feedback) error {
	model := FeedbackModelFromDomain(feedback)
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Table("feedback").Create(model).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	feedback.ID = model.ID
	feedback.CreatedAt = model.CreatedAt
	feedback.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a feedback record by its ID
func (r *feedbackRepository) GetByID(ctx context.Context, id string) (*core.Feedback, error) {
	var model FeedbackModel
	if err := r.db.WithContext(ctx).Table("feedback").Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feedback %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return model.ToDomain(), nil
}

// SetReply attaches an admin reply to one feedback record and returns the
// updated record
func (r *feedbackRepository) SetReply(ctx context.Context, id, reply string) (*core.Feedback, error) {
	result := r.db.WithContext(ctx).Table("feedback").
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reply":      reply,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to set reply: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("feedback %s: %w", id, core.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// ListFiltered applies the search and created-at range filters and returns
// all matches newest first; the bill join happens in the service layer
func (r *feedbackRepository) ListFiltered(ctx context.Context, search string, from, to *time.Time) ([]*core.Feedback, error) {
	query := r.db.WithContext(ctx).Table("feedback")

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(phone) LIKE LOWER(?) OR LOWER(message) LIKE LOWER(?) OR LOWER(bill_id) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var models []FeedbackModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	feedback := make([]*core.Feedback, len(models))
	for i := range models {
		feedback[i] = models[i].ToDomain()
	}
	return feedback, nil
}

// AdminUserRepository implementation

// Create persists a new admin or billing credential
func (r *adminUserRepository) Create(ctx context.Context, user *core.AdminUser) error {
	model := &AdminUserModel{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Table("admin_users").Create(model).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	user.ID = model.ID
	return nil
}

// GetByEmail retrieves a credential by email
func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (*core.AdminUser, error) {
	var model AdminUserModel
	if err := r.db.WithContext(ctx).Table("admin_users").Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("admin user %s: %w", email, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return model.ToDomain(), nil
}

// Update overwrites the mutable fields of a credential
func (r *adminUserRepository) Update(ctx context.Context, user *core.AdminUser) error {
	result := r.db.WithContext(ctx).Table("admin_users").
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          user.Role,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update admin user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("admin user %s: %w", user.ID, core.ErrNotFound)
	}
	return nil
}

// Database Models (with GORM tags)

// CouponModel backs both the coupons and reward_coupons tables; the table
// is chosen per call with db.Table, so there is no TableName method.
type CouponModel struct {
	ID                string       `gorm:"column:id;type:uuid;primaryKey"`
	Code              string       `gorm:"column:code;type:varchar(64);not null"`
	Description       string       `gorm:"column:description;type:text;not null"`
	Discount          string       `gorm:"column:discount;type:varchar(64)"`
	Status            string       `gorm:"column:status;type:varchar(10);not null;default:'active'"`
	TotalCount        int          `gorm:"column:total_count;type:integer;not null"`
	UsedCount         int          `gorm:"column:used_count;type:integer;not null;default:0"`
	IsAssigned        bool         `gorm:"column:is_assigned;type:boolean;not null;default:false"`
	MinAmount         int          `gorm:"column:min_amount;type:integer;not null;default:0"`
	ValidityStartDate sql.NullTime `gorm:"column:validity_start_date;type:timestamp"`
	ValidityEndDate   sql.NullTime `gorm:"column:validity_end_date;type:timestamp"`
	CreatedAt         time.Time    `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"column:updated_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

// CouponModelFromDomain creates CouponModel from core.Coupon
func CouponModelFromDomain(c *core.Coupon) *CouponModel {
	model := &CouponModel{
		ID:          c.ID,
		Code:        c.Code,
		Description: c.Description,
		Discount:    c.Discount,
		Status:      string(c.Status),
		TotalCount:  c.TotalCount,
		UsedCount:   c.UsedCount,
		IsAssigned:  c.IsAssigned,
		MinAmount:   c.MinAmount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.ValidityStartDate != nil {
		model.ValidityStartDate = sql.NullTime{Time: *c.ValidityStartDate, Valid: true}
	}
	if c.ValidityEndDate != nil {
		model.ValidityEndDate = sql.NullTime{Time: *c.ValidityEndDate, Valid: true}
	}
	return model
}

// ToDomain converts CouponModel to core.Coupon
func (m *CouponModel) ToDomain() *core.Coupon {
	coupon := &core.Coupon{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		Discount:    m.Discount,
		Status:      core.CouponStatus(m.Status),
		TotalCount:  m.TotalCount,
		UsedCount:   m.UsedCount,
		IsAssigned:  m.IsAssigned,
		MinAmount:   m.MinAmount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ValidityStartDate.Valid {
		t := m.ValidityStartDate.Time
		coupon.ValidityStartDate = &t
	}
	if m.ValidityEndDate.Valid {
		t := m.ValidityEndDate.Time
		coupon.ValidityEndDate = &t
	}
	return coupon
}

// CouponAssignmentModel represents the coupon_assignments table structure
type CouponAssignmentModel struct {
	ID         string         `gorm:"column:id;type:uuid;primaryKey"`
	CouponID   string         `gorm:"column:coupon_id;type:uuid;not null;index"`
	Phone      string         `gorm:"column:phone;type:varchar(20);not null;index"`
	BillID     sql.NullString `gorm:"column:bill_id;type:uuid"`
	AssignedAt time.Time      `gorm:"column:assigned_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

func (CouponAssignmentModel) TableName() string {
	return "coupon_assignments"
}

// BillModel represents the bills table structure. The scalar columns are
// denormalized copies of the searchable document fields; payload keeps the
// document exactly as the POS client sent it.
type BillModel struct {
	ID                  string    `gorm:"column:id;type:uuid;primaryKey"`
	CustomerPhone       string    `gorm:"column:customer_phone;type:varchar(20);index"`
	InvoiceNumber       string    `gorm:"column:invoice_number;type:varchar(64)"`
	InvDate             string    `gorm:"column:inv_date;type:varchar(10)"` // DD/MM/YYYY
	InvTime             string    `gorm:"column:inv_time;type:varchar(10)"`
	CardHolderName      string    `gorm:"column:card_holder_name;type:varchar(255)"`
	StoreDisplayAddress string    `gorm:"column:store_display_address;type:varchar(255)"`
	CompanyName         string    `gorm:"column:company_name;type:varchar(255)"`
	NetPayableAmount    float64   `gorm:"column:net_payable_amount;type:decimal(10,2)"`
	PaymentStatus       string    `gorm:"column:payment_status;type:varchar(20)"`
	Payload             string    `gorm:"column:payload;type:text"`
	CreatedAt           time.Time `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

func (BillModel) TableName() string {
	return "bills"
}

// BillModelFromDomain creates BillModel from core.Bill
func BillModelFromDomain(b *core.Bill) *BillModel {
	return &BillModel{
		ID:                  b.ID,
		CustomerPhone:       b.CustomerData.Phone,
		InvoiceNumber:       b.TransactionalData.InvoiceNumber,
		InvDate:             b.TransactionalData.InvDate,
		InvTime:             b.TransactionalData.InvTime,
		CardHolderName:      b.LoyaltyData.CardHolderName,
		StoreDisplayAddress: b.StoreData.DisplayAddress,
		CompanyName:         b.CompanyData.Name,
		NetPayableAmount:    b.BillAmountData.NetPayableAmount,
		PaymentStatus:       b.PaymentData.Status,
		Payload:             string(b.Payload),
		CreatedAt:           b.CreatedAt,
	}
}

// ToDomain converts BillModel to core.Bill
func (m *BillModel) ToDomain() *core.Bill {
	return &core.Bill{
		ID:                m.ID,
		CustomerData:      core.CustomerData{Phone: m.CustomerPhone},
		TransactionalData: core.TransactionalData{InvoiceNumber: m.InvoiceNumber, InvDate: m.InvDate, InvTime: m.InvTime},
		LoyaltyData:       core.LoyaltyData{CardHolderName: m.CardHolderName},
		StoreData:         core.StoreData{DisplayAddress: m.StoreDisplayAddress},
		CompanyData:       core.CompanyData{Name: m.CompanyName},
		BillAmountData:    core.BillAmountData{NetPayableAmount: m.NetPayableAmount},
		PaymentData:       core.PaymentData{Status: m.PaymentStatus},
		Payload:           []byte(m.Payload),
		CreatedAt:         m.CreatedAt,
	}
}

// FeedbackModel represents the feedback table structure
type FeedbackModel struct {
	ID        string         `gorm:"column:id;type:uuid;primaryKey"`
	Phone     string         `gorm:"column:phone;type:varchar(20);index"`
	Message   string         `gorm:"column:message;type:text"`
	Stars     int            `gorm:"column:stars;type:integer"`
	Reply     sql.NullString `gorm:"column:reply;type:text"`
	BillID    string         `gorm:"column:bill_id;type:text"` // heterogeneous reference, normalized on join
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

func (FeedbackModel) TableName() string {
	return "feedback"
}

// FeedbackModelFromDomain creates FeedbackModel from core.Feedback
func FeedbackModelFromDomain(f *core.Feedback) *FeedbackModel {
	model := &FeedbackModel{
		ID:        f.ID,
		Phone:     f.Phone,
		Message:   f.Message,
		Stars:     f.Stars,
		BillID:    f.BillID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if f.Reply != nil {
		model.Reply = sql.NullString{String: *f.Reply, Valid: true}
	}
	return model
}

// ToDomain converts FeedbackModel to core.Feedback
func (m *FeedbackModel) ToDomain() *core.Feedback {
	feedback := &core.Feedback{
		ID:        m.ID,
		Phone:     m.Phone,
		Message:   m.Message,
		Stars:     m.Stars,
		BillID:    m.BillID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Reply.Valid {
		reply := m.Reply.String
		feedback.Reply = &reply
	}
	return feedback
}

// AdminUserModel represents the admin_users table structure
type AdminUserModel struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey"`
	Email        string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         string    `gorm:"column:role;type:varchar(20);not null;default:'ADMIN'"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP"`
}

func (AdminUserModel) TableName() string {
	return "admin_users"
}

// ToDomain converts AdminUserModel to core.AdminUser
func (m *AdminUserModel) ToDomain() *core.AdminUser {
	return &core.AdminUser{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
	}
}
