package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// HandlePaymentWebhook receives signed gateway events. The raw body is
// verified before any JSON parsing; an invalid signature is a hard 400 with
// zero datastore access. Non-2xx responses make the gateway redeliver, so
// only retryable processing failures return 500.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	event, err := gatewayClient.VerifyWebhookSignature(payload, signature)
	if err != nil {
		log.Printf("webhook: signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid signature"})
	}

	if err := webhookProcessor.Process(c.Context(), event); err != nil {
		log.Printf("webhook: processing event %s failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "event processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}
