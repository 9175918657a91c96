package service

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
)

// BillService owns digital bill creation, lookup, reporting and exports
type BillService struct {
	repo core.BillRepository
	sms  core.SMSGateway
}

// NewBillService creates a new bill service
func NewBillService(repo core.BillRepository, sms core.SMSGateway) *BillService {
	return &BillService{repo: repo, sms: sms}
}

// Create stores a bill document sent by the POS and texts the customer a
// link to it. The SMS is fire-and-forget: the bill is already committed,
// and a gateway failure only gets logged.
func (s *BillService) Create(ctx context.Context, bill *core.Bill) (*core.Bill, error) {
	if strings.TrimSpace(bill.CustomerData.Phone) == "" {
		return nil, core.NewValidationError("customerData.phone", "customer phone is required")
	}
	if strings.TrimSpace(bill.TransactionalData.InvoiceNumber) == "" {
		return nil, core.NewValidationError("transactionalData.invoiceNumber", "invoice number is required")
	}

	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, err
	}

	if s.sms != nil {
		go func(phone, billID string) {
			smsCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := s.sms.SendBillLink(smsCtx, phone, billID); err != nil {
				log.Printf("failed to send bill link sms to %s: %v", phone, err)
			}
		}(bill.CustomerData.Phone, bill.ID)
	}

	return bill, nil
}

// Get retrieves one bill by id
func (s *BillService) Get(ctx context.Context, id string) (*core.Bill, error) {
	return s.repo.GetByID(ctx, id)
}

// GetLatestByPhone returns only the customer's most recent bill
func (s *BillService) GetLatestByPhone(ctx context.Context, phone string) (*core.Bill, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, core.NewValidationError("phone", "phone is required")
	}
	return s.repo.GetLatestByPhone(ctx, phone)
}

// List returns a page of bills matching the filter
func (s *BillService) List(ctx context.Context, filter core.BillFilter, page, limit int) ([]*core.Bill, *core.Pagination, error) {
	page, limit = normalizePageLimit(page, limit)

	bills, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, nil, err
	}
	return bills, newPagination(total, page, limit), nil
}

// MonthlyStats aggregates the calendar month containing now. The caller
// injects now so the boundary is testable.
func (s *BillService) MonthlyStats(ctx context.Context, now time.Time) (*core.MonthlyStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)

	bills, err := s.repo.ListAll(ctx, core.BillFilter{
		FromDate: monthStart.Format("2006-01-02"),
		ToDate:   monthEnd.Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	stats := &core.MonthlyStats{NumberOfBills: len(bills)}
	phones := make(map[string]struct{})
	var revenue float64
	for _, bill := range bills {
		phones[bill.CustomerData.Phone] = struct{}{}
		revenue += bill.BillAmountData.NetPayableAmount
	}
	stats.NumberOfCustomers = len(phones)
	stats.TotalRevenue = round2(revenue)
	if len(bills) > 0 {
		stats.AverageBillValue = round2(revenue / float64(len(bills)))
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
