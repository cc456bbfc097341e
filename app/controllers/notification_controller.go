package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/obramarket/ObraMarket/app/repository"
)

// NotificationController serves the notification feed the UI polls. The
// provisioning pipeline only writes notifications; reading and dismissing
// happen here.
type NotificationController struct {
	notifications repository.NotificationRepository
}

// NewNotificationController creates a notification controller.
func NewNotificationController(notifications repository.NotificationRepository) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// HandleListNotifications returns a user's notifications, newest first.
func (nc *NotificationController) HandleListNotifications(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("id"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_user_id"})
	}

	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := nc.notifications.GetByUserID(userID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}
	unread, err := nc.notifications.CountUnread(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notifications": notifications,
		"unread":        unread,
	})
}

// HandleMarkNotificationRead marks one notification as read.
func (nc *NotificationController) HandleMarkNotificationRead(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("notificationId"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_notification_id"})
	}
	if err := nc.notifications.MarkRead(uint(id)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "update_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
