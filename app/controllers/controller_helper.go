package controllers

import (
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/valetdesk/ValetDesk/internal/pkg/apperrors"
	"github.com/valetdesk/ValetDesk/internal/pkg/dispatch"
	"github.com/valetdesk/ValetDesk/internal/pkg/payment"
)

var (
	paymentService   *payment.Service
	webhookProcessor *payment.Processor
	dispatchService  *dispatch.Service
	gatewayClient    payment.Gateway
	servicesOnce     sync.Once
)

// InitServices wires the domain services the controllers dispatch to. Must
// be called once during application startup, before the router is installed.
func InitServices(db *gorm.DB, gateway payment.Gateway, baseURL string) {
	servicesOnce.Do(func() {
		gatewayClient = gateway
		paymentService = payment.NewServiceFromDB(db, gateway, baseURL)
		webhookProcessor = payment.NewProcessorFromDB(db, gateway)
		dispatchService = dispatch.NewServiceFromDB(db)
	})
}

// respondError translates a classified error into the JSON error shape used
// across the API. Infrastructure failures are logged with their cause but
// surface a generic message.
func respondError(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		message = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   errorCode(status),
		"message": message,
	})
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	default:
		return "internal_server_error"
	}
}
