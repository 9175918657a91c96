package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/xuri/excelize/v2"
)

// FeedbackService owns customer feedback capture, the feedback/bill join
// and admin replies
type FeedbackService struct {
	repo  core.FeedbackRepository
	bills core.BillRepository
	sms   core.SMSGateway
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(repo core.FeedbackRepository, bills core.BillRepository, sms core.SMSGateway) *FeedbackService {
	return &FeedbackService{repo: repo, bills: bills, sms: sms}
}

// Submit validates and stores one feedback record. The bill reference is
// stored exactly as received; normalization only happens on the read path.
func (s *FeedbackService) Submit(ctx context.Context, feedback *core.Feedback) (*core.Feedback, error) {
	feedback.Phone = strings.TrimSpace(feedback.Phone)
	if feedback.Phone == "" {
		return nil, core.NewValidationError("phone", "phone is required")
	}
	if strings.TrimSpace(feedback.Message) == "" {
		return nil, core.NewValidationError("message", "message is required")
	}
	if feedback.Stars < 1 || feedback.Stars > 5 {
		return nil, core.NewValidationError("stars", "stars must be between 1 and 5")
	}

	if err := s.repo.Create(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// Get retrieves one feedback record by id
func (s *FeedbackService) Get(ctx context.Context, id string) (*core.Feedback, error) {
	return s.repo.GetByID(ctx, id)
}

// List runs the full feedback pipeline: filter, join each record to its
// bill, apply the store filter on the joined result, then paginate in
// memory. The reported total is the post-join filtered count, so the
// envelope always agrees with what the pages contain.
func (s *FeedbackService) List(ctx context.Context, filter core.FeedbackFilter, page, limit int) ([]*core.FeedbackWithBill, *core.Pagination, error) {
	page, limit = normalizePageLimit(page, limit)

	joined, err := s.listJoined(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	total := int64(len(joined))
	start := (page - 1) * limit
	if start > len(joined) {
		start = len(joined)
	}
	end := start + limit
	if end > len(joined) {
		end = len(joined)
	}
	return joined[start:end], newPagination(total, page, limit), nil
}

// listJoined is the shared unpaginated pipeline behind List and ExportXLSX
func (s *FeedbackService) listJoined(ctx context.Context, filter core.FeedbackFilter) ([]*core.FeedbackWithBill, error) {
	from, to, err := parseDateRange(filter.FromDate, filter.ToDate)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListFiltered(ctx, filter.Search, from, to)
	if err != nil {
		return nil, err
	}

	// Resolve the heterogeneous bill references in one batch.
	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if id, ok := core.NormalizeBillRef(record.BillID); ok {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	bills, err := s.bills.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	joined := make([]*core.FeedbackWithBill, 0, len(records))
	for _, record := range records {
		item := &core.FeedbackWithBill{Feedback: *record}
		if id, ok := core.NormalizeBillRef(record.BillID); ok {
			if bill, found := bills[id]; found {
				store := bill.StoreData.DisplayAddress
				invoice := bill.TransactionalData.InvoiceNumber
				item.StoreName = &store
				item.InvoiceNumber = &invoice
			}
		}
		if filter.Store != "" {
			// The store filter can only match after the join.
			if item.StoreName == nil || !strings.Contains(strings.ToLower(*item.StoreName), strings.ToLower(filter.Store)) {
				continue
			}
		}
		joined = append(joined, item)
	}
	return joined, nil
}

// Reply attaches an admin reply and texts it to the customer. The reply is
// the primary write; a failed SMS is logged and never rolls it back.
func (s *FeedbackService) Reply(ctx context.Context, id, reply string) (*core.Feedback, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, core.NewValidationError("reply", "reply is required")
	}

	feedback, err := s.repo.SetReply(ctx, id, reply)
	if err != nil {
		return nil, err
	}

	if s.sms != nil {
		go func(phone, text string) {
			smsCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			if err := s.sms.SendText(smsCtx, phone, text); err != nil {
				log.Printf("failed to send reply sms to %s: %v", phone, err)
			}
		}(feedback.Phone, "Response to your feedback: "+reply)
	}

	return feedback, nil
}

var feedbackSheetHeader = []string{
	"Phone", "Message", "Stars", "Reply", "Store", "Invoice Number", "Created At",
}

// ExportXLSX renders the full joined pipeline result as an xlsx workbook
func (s *FeedbackService) ExportXLSX(ctx context.Context, filter core.FeedbackFilter) (*bytes.Buffer, error) {
	joined, err := s.listJoined(ctx, filter)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()
	sheet := workbook.GetSheetName(0)

	if err := workbook.SetSheetRow(sheet, "A1", &feedbackSheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, item := range joined {
		row := []interface{}{
			item.Phone,
			item.Message,
			strconv.Itoa(item.Stars),
			strValue(item.Reply),
			strValue(item.StoreName),
			strValue(item.InvoiceNumber),
			item.CreatedAt.Format("02/01/2006 15:04"),
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

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseDateRange converts optional YYYY-MM-DD bounds into an inclusive
// created-at window; the upper bound extends to the end of its day
func parseDateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return nil, nil, core.NewValidationError("from", "from date must be YYYY-MM-DD")
		}
		from = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return nil, nil, core.NewValidationError("to", "to date must be YYYY-MM-DD")
		}
		endOfDay := t.AddDate(0, 0, 1).Add(-time.Second)
		to = &endOfDay
	}
	return from, to, nil
}
