package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/valetdesk/ValetDesk/app/repository"
	"github.com/valetdesk/ValetDesk/internal/pkg/payment"
	"github.com/valetdesk/ValetDesk/internal/pkg/usercontext"
)

type createPaymentRequest struct {
	EventID       uint    `json:"event_id"`
	RequestID     *uint   `json:"request_id"`
	Currency      string  `json:"currency"`
	ServiceAmount float64 `json:"service_amount"`
	TipAmount     float64 `json:"tip_amount"`
	Notes         string  `json:"notes"`
}

// HandleCreatePayment starts a checkout for the logged-in valet and returns
// the gateway redirect URL.
func HandleCreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if req.EventID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing event id"})
	}

	userCtx := usercontext.GetUserContext(c)
	email := ""
	if user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID); err == nil {
		email = user.Email
	}

	result, err := paymentService.CreateAuthenticatedCheckout(c.Context(), userCtx.UserID, email, payment.CreateCheckoutInput{
		EventID:       req.EventID,
		RequestID:     req.RequestID,
		Currency:      req.Currency,
		ServiceAmount: req.ServiceAmount,
		TipAmount:     req.TipAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

type createPublicPaymentRequest struct {
	Token         string  `json:"token"`
	ServiceAmount float64 `json:"service_amount"`
	TipAmount     float64 `json:"tip_amount"`
	Notes         string  `json:"notes"`
}

// HandleCreatePublicPayment starts a guest checkout authorized by a ticket
// token.
func HandleCreatePublicPayment(c *fiber.Ctx) error {
	var req createPublicPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing token"})
	}

	result, err := paymentService.CreatePublicCheckout(c.Context(), payment.CreatePublicCheckoutInput{
		Token:         req.Token,
		ServiceAmount: req.ServiceAmount,
		TipAmount:     req.TipAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

type refundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

// HandleRefundPayment issues a full or partial refund. Amount 0 refunds the
// whole payment. Restricted to managers by the route middleware.
func HandleRefundPayment(c *fiber.Ctx) error {
	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if req.PaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing payment id"})
	}
	if req.Amount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid amount"})
	}

	result, err := paymentService.Refund(c.Context(), payment.RefundInput{
		PaymentUUID: req.PaymentID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		Notes:       req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"refund_id": result.ID,
		"amount":    result.Amount,
		"status":    result.Status,
	})
}
