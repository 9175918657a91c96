package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/dumu-tech/digibill/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// couponRequest is the admin create/update payload, shared by both variants.
// The admin client historically sends the inventory size as "quantity";
// "totalCount" is accepted as an equivalent. Used counts are never taken
// from the client.
type couponRequest struct {
	CouponCode        string     `json:"couponCode"`
	Description       string     `json:"description"`
	Discount          string     `json:"discount"`
	Status            string     `json:"status"`
	Quantity          int        `json:"quantity"`
	TotalCount        int        `json:"totalCount"`
	IsAssigned        bool       `json:"isAssigned"`
	MinAmount         int        `json:"minAmount"`
	ValidityStartDate *time.Time `json:"validityStartDate"`
	ValidityEndDate   *time.Time `json:"validityEndDate"`
}

func (r *couponRequest) toDomain() *core.Coupon {
	total := r.TotalCount
	if r.Quantity > 0 {
		total = r.Quantity
	}
	return &core.Coupon{
		Code:              r.CouponCode,
		Description:       r.Description,
		Discount:          r.Discount,
		Status:            core.CouponStatus(r.Status),
		TotalCount:        total,
		IsAssigned:        r.IsAssigned,
		MinAmount:         r.MinAmount,
		ValidityStartDate: r.ValidityStartDate,
		ValidityEndDate:   r.ValidityEndDate,
	}
}

// The admin coupon handlers are built per variant so the same code serves
// both /coupons and /reward-coupons.

func (h *Handler) listCouponsHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		limit := c.QueryInt("limit", 10)

		coupons, pagination, err := svc.List(c.Context(), c.Query("search"), page, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"data":       coupons,
			"pagination": pagination,
		})
	}
}

func (h *Handler) createCouponHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req couponRequest
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, core.NewValidationError("body", "invalid request body"))
		}

		coupon, err := svc.Create(c.Context(), req.toDomain())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": coupon})
	}
}

func (h *Handler) updateCouponHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req couponRequest
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, core.NewValidationError("body", "invalid request body"))
		}
		coupon := req.toDomain()
		coupon.ID = c.Params("id")

		updated, err := svc.Update(c.Context(), coupon)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": updated})
	}
}

func (h *Handler) deleteCouponHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func (h *Handler) deleteAllCouponsHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteAll(c.Context()); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func (h *Handler) assignCouponHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Phone  string `json:"phone"`
			BillID string `json:"bill_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, core.NewValidationError("body", "invalid request body"))
		}

		coupon, err := svc.Assign(c.Context(), req.Phone, req.BillID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": coupon})
	}
}

func (h *Handler) importCouponsHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return respondError(c, core.NewValidationError("file", "workbook file is required"))
		}
		file, err := fileHeader.Open()
		if err != nil {
			return respondError(c, core.NewValidationError("file", "cannot open uploaded file"))
		}
		defer file.Close()

		result, err := svc.Import(c.Context(), file)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "data": result})
	}
}

func (h *Handler) exportCouponsHandler(svc *service.CouponService, filename string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		buf, err := svc.Export(c.Context())
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
		return c.Send(buf.Bytes())
	}
}

func (h *Handler) couponReportHandler(svc *service.CouponService, filename string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var filter core.CouponReportFilter
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&filter); err != nil {
				return respondError(c, core.NewValidationError("body", "invalid report filters"))
			}
		}

		buf, err := svc.ReportCSV(c.Context(), filter)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
		return c.Send(buf.Bytes())
	}
}

func (h *Handler) setMinAmountHandler(svc *service.CouponService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			MinAmount int `json:"minAmount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, core.NewValidationError("body", "invalid request body"))
		}

		modified, err := svc.SetGlobalMinAmount(c.Context(), req.MinAmount)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "modified": modified})
	}
}

// ListBills serves the admin bill console listing
func (h *Handler) ListBills(c *fiber.Ctx) error {
	filter := core.BillFilter{
		Search:   c.Query("search"),
		Store:    c.Query("store"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	bills, pagination, err := h.bills.List(c.Context(), filter, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       bills,
		"pagination": pagination,
	})
}

// BillStats serves the current calendar month's aggregates
func (h *Handler) BillStats(c *fiber.Ctx) error {
	stats, err := h.bills.MonthlyStats(c.Context(), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// ExportBills serves the filtered bill listing as an xlsx download
func (h *Handler) ExportBills(c *fiber.Ctx) error {
	filter := core.BillFilter{
		Search:   c.Query("search"),
		Store:    c.Query("store"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}

	buf, err := h.bills.ExportXLSX(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=bills.xlsx")
	return c.Send(buf.Bytes())
}

// ListFeedback serves the joined feedback listing
func (h *Handler) ListFeedback(c *fiber.Ctx) error {
	filter := core.FeedbackFilter{
		Search:   c.Query("search"),
		Store:    c.Query("store"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	feedback, pagination, err := h.feedback.List(c.Context(), filter, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       feedback,
		"pagination": pagination,
	})
}

// ExportFeedback serves the joined feedback listing as an xlsx download
func (h *Handler) ExportFeedback(c *fiber.Ctx) error {
	filter := core.FeedbackFilter{
		Search:   c.Query("search"),
		Store:    c.Query("store"),
		FromDate: c.Query("from"),
		ToDate:   c.Query("to"),
	}

	buf, err := h.feedback.ExportXLSX(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=feedback.xlsx")
	return c.Send(buf.Bytes())
}

// GetFeedback serves one raw feedback record
func (h *Handler) GetFeedback(c *fiber.Ctx) error {
	feedback, err := h.feedback.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": feedback})
}

// ReplyFeedback attaches an admin reply and texts it to the customer
func (h *Handler) ReplyFeedback(c *fiber.Ctx) error {
	var req struct {
		Reply string `json:"reply"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	feedback, err := h.feedback.Reply(c.Context(), c.Params("id"), req.Reply)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": feedback})
}
