package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	config "github.com/ristomat/socialcast/configs"
	"github.com/ristomat/socialcast/internal/erp"
	"github.com/ristomat/socialcast/internal/models"
	"github.com/ristomat/socialcast/internal/queue"
	"github.com/ristomat/socialcast/internal/repository"
	"github.com/ristomat/socialcast/internal/service"
	"github.com/ristomat/socialcast/internal/transfer"
)

type PublishHandler struct {
	s           service.PublishService
	ph          repository.PostingHistoryRepository
	accounts    []models.AccountTarget
	timeout     time.Duration
	AsynqClient *asynq.Client
}

func NewPublishHandler(
	cfg config.Config,
	s service.PublishService,
	ph repository.PostingHistoryRepository,
	accounts []models.AccountTarget,
	asynqClient *asynq.Client) *PublishHandler {
	return &PublishHandler{
		s:           s,
		ph:          ph,
		accounts:    accounts,
		timeout:     cfg.PublishTimeout,
		AsynqClient: asynqClient,
	}
}

func (h *PublishHandler) PublishPost(c *fiber.Ctx) error {
	var pc transfer.PublishCreation
	if err := c.BodyParser(&pc); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	// Validate up front so a bad request is rejected now rather than failing
	// inside the queue at fire time.
	if strings.TrimSpace(pc.Caption) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": service.ErrMissingCaption.Error(),
		})
	}

	if pc.ScheduledDate != "" {
		scheduledAt, err := time.Parse(service.ScheduledTimeLayout, pc.ScheduledDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid scheduled date format",
			})
		}

		// The Graph API direct path cannot schedule, so requests with an
		// Instagram target are held in the queue until fire time. Pure ERP
		// requests pass the date through; the ERP schedules those itself.
		if delay := time.Until(scheduledAt); delay > 0 && h.targetsInstagram(pc.AccountIDs) {
			err := queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{Request: pc}, delay)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Error scheduling post",
				})
			}
			return c.Status(fiber.StatusOK).JSON(transfer.PublishResult{
				Success: true,
				Message: "Post scheduled successfully",
			})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	result, err := h.s.Publish(ctx, &pc)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCaption), errors.Is(err, service.ErrNoAccounts):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, erp.ErrUnauthorized):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "ERP session is invalid",
			})
		case errors.Is(err, service.ErrAllPlatformsFailed):
			return c.Status(fiber.StatusBadGateway).JSON(result)
		case errors.Is(err, context.DeadlineExceeded):
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "Publishing did not finish in time",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PublishHandler) ListAccounts(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.accounts)
}

func (h *PublishHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	history, err := h.ph.List(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *PublishHandler) targetsInstagram(ids []int64) bool {
	for _, acc := range h.accounts {
		if acc.Platform != models.PlatformInstagram {
			continue
		}
		if len(ids) == 0 {
			return true
		}
		for _, id := range ids {
			if id == acc.ID {
				return true
			}
		}
	}
	return false
}
