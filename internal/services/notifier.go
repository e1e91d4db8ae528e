package services

import (
	applog "swiftcart/internal/log"

	"swiftcart/internal/domain"
)

// Notifier is the email-dispatch collaborator. Delivery failures must
// never fail the operation that triggered them; callers log and move on.
type Notifier interface {
	PurchaseReceipt(o domain.Order) error
	ReviewReminder(o domain.Order) error
}

// LogNotifier stands in for a real mail provider: it just writes an
// audit line per notification.
type LogNotifier struct{}

func (LogNotifier) PurchaseReceipt(o domain.Order) error {
	applog.BgInfo("notify.purchase_receipt", map[string]any{"order_id": o.ID, "user_id": o.UserID})
	return nil
}

func (LogNotifier) ReviewReminder(o domain.Order) error {
	applog.BgInfo("notify.review_reminder", map[string]any{"order_id": o.ID, "user_id": o.UserID})
	return nil
}
