package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/app/models"
	"github.com/valetdesk/ValetDesk/app/repository"
	"github.com/valetdesk/ValetDesk/internal/pkg/cache"
	"github.com/valetdesk/ValetDesk/internal/pkg/metrics/counter"
	"github.com/valetdesk/ValetDesk/internal/pkg/token"
)

// ticketCacheTTL bounds staleness of the public guest screen; status
// changes invalidate the entry immediately.
const ticketCacheTTL = 30 * time.Second

func ticketCacheKey(tok string) string {
	return "ticket:token:" + tok
}

// invalidateTicketCache drops the cached guest view of a ticket.
func invalidateTicketCache(tok string) {
	if tok == "" {
		return
	}
	if err := cache.Delete(ticketCacheKey(tok)); err != nil {
		log.Printf("ticket cache invalidation failed: %v", err)
	}
}

type createTicketRequest struct {
	EventID         uint   `json:"event_id"`
	VehicleBrand    string `json:"vehicle_brand"`
	VehicleModel    string `json:"vehicle_model"`
	VehicleColor    string `json:"vehicle_color"`
	LicensePlate    string `json:"license_plate"`
	ParkingLocation string `json:"parking_location"`
	Notes           string `json:"notes"`
}

// HandleCreateTicket creates a parked-vehicle ticket with a fresh short code
// and guest token. Falls back to the default event when none is given.
func HandleCreateTicket(c *fiber.Ctx) error {
	var req createTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
	}

	repos := repository.GetGlobalRepositories()
	eventID := req.EventID
	if eventID == 0 {
		event, err := repos.Event.GetDefault()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "no event available"})
		}
		eventID = event.ID
	} else if _, err := repos.Event.GetByID(eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "event lookup failed"})
	}

	guestToken, err := token.NewTicketToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "token generation failed"})
	}
	shortCode, err := token.NewShortCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "token generation failed"})
	}

	ticket := &models.Ticket{
		ShortCode:       shortCode,
		Token:           guestToken,
		EventID:         eventID,
		Status:          models.TicketStatusOpen,
		VehicleBrand:    req.VehicleBrand,
		VehicleModel:    req.VehicleModel,
		VehicleColor:    req.VehicleColor,
		LicensePlate:    req.LicensePlate,
		ParkingLocation: req.ParkingLocation,
		Notes:           req.Notes,
	}
	if err := repos.Ticket.Create(ticket); err != nil {
		log.Printf("ticket insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "ticket creation failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         ticket.ID,
		"uuid":       ticket.UUID,
		"short_code": ticket.ShortCode,
		"token":      ticket.Token,
		"event_id":   ticket.EventID,
		"status":     ticket.Status,
	})
}

// publicTicketView is the guest-visible subset of a ticket. The token itself
// is never echoed back.
type publicTicketView struct {
	ID           uint   `json:"id"`
	ShortCode    string `json:"short_code"`
	Status       string `json:"status"`
	VehicleBrand string `json:"vehicle_brand"`
	VehicleModel string `json:"vehicle_model"`
	VehicleColor string `json:"vehicle_color"`
	EventID      uint   `json:"event_id"`
}

// HandleTicketByToken serves the public guest screen lookup. Entries are
// cached briefly to absorb QR-code polling.
func HandleTicketByToken(c *fiber.Ctx) error {
	tok := c.Params("token")
	if tok == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "missing token"})
	}

	key := ticketCacheKey(tok)
	if cached, err := cache.Get(key); err == nil {
		var view publicTicketView
		if json.Unmarshal([]byte(cached), &view) == nil {
			if err := counter.AddTicketView(view.ID); err != nil {
				log.Printf("ticket view counter failed: %v", err)
			}
			return c.JSON(view)
		}
	} else if !cache.IsNotFound(err) {
		log.Printf("ticket cache read failed: %v", err)
	}

	ticket, err := repository.GetGlobalRepositories().Ticket.GetByToken(tok)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "ticket not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "ticket lookup failed"})
	}

	view := publicTicketView{
		ID:           ticket.ID,
		ShortCode:    ticket.ShortCode,
		Status:       ticket.Status,
		VehicleBrand: ticket.VehicleBrand,
		VehicleModel: ticket.VehicleModel,
		VehicleColor: ticket.VehicleColor,
		EventID:      ticket.EventID,
	}
	if payload, err := json.Marshal(view); err == nil {
		if err := cache.Set(key, payload, ticketCacheTTL); err != nil {
			log.Printf("ticket cache write failed: %v", err)
		}
	}
	if err := counter.AddTicketView(ticket.ID); err != nil {
		log.Printf("ticket view counter failed: %v", err)
	}

	return c.JSON(view)
}
