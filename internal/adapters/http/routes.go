package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dumu-tech/digibill/internal/core"
	"github.com/dumu-tech/digibill/internal/middleware"
	"github.com/dumu-tech/digibill/internal/service"
)

// RegisterRoutes wires the full HTTP surface. Customer-facing routes are
// open; bill creation takes a BILLING or ADMIN token; the console requires
// ADMIN. Fixed bill paths are registered before the :phone parameter so
// they are not swallowed by it.
func (h *Handler) RegisterRoutes(app *fiber.App, jwtSecret string) {
	api := app.Group("/api")
	protected := middleware.Protected(jwtSecret)
	adminOnly := middleware.RequireRoles(core.RoleAdmin)
	posOnly := middleware.RequireRoles(core.RoleBilling, core.RoleAdmin)

	// Auth
	api.Post("/auth/login", h.Login)
	api.Post("/auth/register", h.Register)
	api.Post("/auth/logout", h.Logout)
	api.Put("/auth/update", protected, adminOnly, h.UpdateCredential)

	// Bills
	api.Post("/bills", protected, posOnly, h.CreateBill)
	api.Get("/bills", protected, adminOnly, h.ListBills)
	api.Get("/bills/admin/export", protected, adminOnly, h.ExportBills)
	api.Get("/bills/dashboard/monthly-stats", protected, adminOnly, h.BillStats)
	api.Get("/bills/billsbyid/:id", h.GetBill)
	api.Get("/bills/billsbyid/:id/pdf", h.GetBillPDF)
	api.Post("/bills/send-otp", h.RequestOTP)
	api.Post("/bills/verify-otp", h.VerifyOTP)
	api.Get("/bills/:phone", h.GetLatestBillByPhone)

	// Feedback
	api.Post("/feedback", h.SubmitFeedback)
	api.Get("/feedback", protected, adminOnly, h.ListFeedback)
	api.Get("/feedback/export", protected, adminOnly, h.ExportFeedback)
	api.Post("/feedback/:id/reply", protected, adminOnly, h.ReplyFeedback)
	api.Get("/feedback/:id", protected, adminOnly, h.GetFeedback)

	// Reward coupon redemption (customer/POS-facing)
	api.Post("/reward-coupon/apply", h.ApplyRewardCoupon)

	// Coupon administration, one identical surface per variant
	h.registerCouponRoutes(api.Group("/coupons", protected, adminOnly), h.coupons, "coupons")
	rewards := api.Group("/reward-coupon", protected, adminOnly)
	h.registerCouponRoutes(rewards, h.rewards, "reward-coupons")
	rewards.Post("/consume", h.ConsumeRewardCoupon)
}

// registerCouponRoutes mounts the admin surface for one variant
func (h *Handler) registerCouponRoutes(group fiber.Router, svc *service.CouponService, name string) {
	group.Get("/", h.listCouponsHandler(svc))
	group.Post("/", h.createCouponHandler(svc))
	group.Post("/assign", h.assignCouponHandler(svc))
	group.Post("/import", h.importCouponsHandler(svc))
	group.Get("/export", h.exportCouponsHandler(svc, name+".xlsx"))
	group.Post("/generate-report", h.couponReportHandler(svc, name+"-report.csv"))
	group.Patch("/global-min-amount", h.setMinAmountHandler(svc))
	group.Delete("/delete-all", h.deleteAllCouponsHandler(svc))
	group.Put("/:id", h.updateCouponHandler(svc))
	group.Delete("/:id", h.deleteCouponHandler(svc))
}
