package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/dumu-tech/digibill/internal/service"
)

// Handler holds the services behind the HTTP surface
type Handler struct {
	coupons  *service.CouponService
	rewards  *service.CouponService
	bills    *service.BillService
	feedback *service.FeedbackService
	auth     *service.AuthService
	baseURL  string
}

// NewHandler creates a new HTTP handler. baseURL is the public origin used
// to build shareable bill links.
func NewHandler(coupons, rewards *service.CouponService, bills *service.BillService, feedback *service.FeedbackService, auth *service.AuthService, baseURL string) *Handler {
	return &Handler{
		coupons:  coupons,
		rewards:  rewards,
		bills:    bills,
		feedback: feedback,
		auth:     auth,
		baseURL:  baseURL,
	}
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case core.IsValidation(err):
		status = fiber.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, core.ErrDuplicateCode):
		status = fiber.StatusConflict
	case errors.Is(err, core.ErrInventoryExhausted):
		status = fiber.StatusConflict
	case errors.Is(err, core.ErrCouponInactive), errors.Is(err, core.ErrBelowMinimum):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, core.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, core.ErrUpstream):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

// Login authenticates a console or POS credential
func (h *Handler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	token, user, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Logout clears the auth cookie
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"success": true})
}

// CreateBill stores a POS bill document and triggers the bill-link SMS
func (h *Handler) CreateBill(c *fiber.Ctx) error {
	var bill core.Bill
	if err := c.BodyParser(&bill); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid bill document"))
	}
	bill.Payload = append([]byte(nil), c.Body()...)

	created, err := h.bills.Create(c.Context(), &bill)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"billuid": created.ID,
		"bill":    fmt.Sprintf("%s/mybill?b=%s", h.baseURL, created.ID),
		"data":    created,
	})
}

// GetLatestBillByPhone serves only the customer's most recent bill
func (h *Handler) GetLatestBillByPhone(c *fiber.Ctx) error {
	bill, err := h.bills.GetLatestByPhone(c.Context(), c.Params("phone"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": bill})
}

// GetBill serves one bill; this is the target of the SMS link
func (h *Handler) GetBill(c *fiber.Ctx) error {
	bill, err := h.bills.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": bill})
}

// GetBillPDF serves one bill as a downloadable PDF receipt
func (h *Handler) GetBillPDF(c *fiber.Ctx) error {
	buf, err := h.bills.RenderPDF(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=bill-%s.pdf", c.Params("id")))
	return c.Send(buf.Bytes())
}

// Register creates a console or POS credential
func (h *Handler) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	user, err := h.auth.Register(c.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": user})
}

// UpdateCredential rotates a credential's password and optionally its role
func (h *Handler) UpdateCredential(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	user, err := h.auth.UpdateCredential(c.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// RequestOTP sends a verification code to a customer phone. Asking again
// always replaces the pending code.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req struct {
		Phone  string `json:"phone"`
		BillID string `json:"bill_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}
	if err := h.auth.RequestOTP(c.Context(), req.Phone, req.BillID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// VerifyOTP checks the code and, on success, returns the customer's most
// recent bill (or null when they have none yet)
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	if err := h.auth.VerifyOTP(c.Context(), req.Phone, req.OTP); err != nil {
		return respondError(c, err)
	}

	bill, err := h.bills.GetLatestByPhone(c.Context(), req.Phone)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"verified": true,
		"data":     bill,
	})
}

// SubmitFeedback stores a customer's feedback on a bill
func (h *Handler) SubmitFeedback(c *fiber.Ctx) error {
	var req struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
		Stars   int    `json:"stars"`
		BillID  string `json:"bill_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	feedback, err := h.feedback.Submit(c.Context(), &core.Feedback{
		Phone:   req.Phone,
		Message: req.Message,
		Stars:   req.Stars,
		BillID:  req.BillID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    feedback,
	})
}

// ApplyRewardCoupon validates a code against a cart total without
// consuming inventory. "billAmount" is accepted as an alias for
// "cartTotal" for older clients.
func (h *Handler) ApplyRewardCoupon(c *fiber.Ctx) error {
	var req struct {
		CouponCode string  `json:"couponCode"`
		CartTotal  float64 `json:"cartTotal"`
		BillAmount float64 `json:"billAmount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	total := req.CartTotal
	if total == 0 {
		total = req.BillAmount
	}
	if total < 0 {
		return respondError(c, core.NewValidationError("cartTotal", "cart total cannot be negative"))
	}

	terms, err := h.rewards.Apply(c.Context(), req.CouponCode, total)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": terms})
}

// ConsumeRewardCoupon settles a previously applied code by burning one
// unit of its inventory
func (h *Handler) ConsumeRewardCoupon(c *fiber.Ctx) error {
	var req struct {
		CouponCode string `json:"couponCode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, core.NewValidationError("body", "invalid request body"))
	}

	coupon, err := h.rewards.Consume(c.Context(), req.CouponCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": coupon})
}
