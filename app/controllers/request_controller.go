package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/internal/pkg/dispatch"
	"github.com/valetdesk/ValetDesk/internal/pkg/usercontext"
)

type createRequestRequest struct {
	TicketID         uint       `json:"ticket_id"`
	Token            string     `json:"token"`
	Type             string     `json:"type"`
	PickupETAMinutes *int       `json:"pickup_eta_minutes"`
	PickupAt         *time.Time `json:"pickup_at"`
	Comment          string     `json:"comment"`
}

// HandleCreateRequest submits a service request on behalf of a valet,
// identified by ticket id.
func HandleCreateRequest(c *fiber.Ctx) error {
	var req createRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}

	result, err := dispatchService.Submit(dispatch.SubmitInput{
		TicketID:         req.TicketID,
		Type:             req.Type,
		PickupETAMinutes: req.PickupETAMinutes,
		PickupAt:         req.PickupAt,
		Comment:          req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	if result.Ticket != nil {
		invalidateTicketCache(result.Ticket.Token)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleCreatePublicRequest submits a service request from the guest screen,
// authorized by the ticket token.
func HandleCreatePublicRequest(c *fiber.Ctx) error {
	var req createRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}
	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing token"})
	}

	result, err := dispatchService.Submit(dispatch.SubmitInput{
		Token:            req.Token,
		Type:             req.Type,
		PickupETAMinutes: req.PickupETAMinutes,
		PickupAt:         req.PickupAt,
		Comment:          req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	invalidateTicketCache(req.Token)
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleMarkRequestHandled completes a request. Completed requests are
// immutable, repeating the action is rejected.
func HandleMarkRequestHandled(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request id"})
	}

	result, err := dispatchService.MarkHandled(uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleTakeRequest lets the calling valet claim an unhandled request.
func HandleTakeRequest(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request id"})
	}

	result, err := dispatchService.Take(uint(id), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleListRequests lists requests newest first. Valets see their assigned
// events; managers see everything.
func HandleListRequests(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	user := &models.User{ID: userCtx.UserID, Role: userCtx.Role}

	result, err := dispatchService.ListForUser(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"requests": result})
}
