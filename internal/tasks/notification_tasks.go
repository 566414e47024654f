package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/services"
)

// NotifyOwnerTaskDef tells the owner of a hall or service that one of their
// bookings was paid or refunded, over the channel the owner chose
type NotifyOwnerTaskDef struct{}

func (t *NotifyOwnerTaskDef) TaskID() string {
	return services.TaskNotifyOwner
}

func (t *NotifyOwnerTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask, attempt int) (map[string]interface{}, error) {
	var args services.NotifyOwnerArgs
	if err := services.DecodeTaskArgs(task.Arguments, &args); err != nil {
		return nil, err
	}
	if args.ResourceID == "" {
		return nil, fmt.Errorf("resource_id is missing")
	}

	var owner models.Owner
	if err := deps.DB.WithContext(ctx).Where("resource_id = ?", args.ResourceID).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			deps.Logger.Info("Skipping owner notification: no owner registered", zap.String("resource_id", args.ResourceID))
			return map[string]interface{}{"status": "skipped", "reason": "owner not found"}, nil
		}
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}

	subject, body := ownerMessage(owner, args)

	var sendErr error
	switch owner.Channel {
	case models.NotificationChannelEmail:
		sendErr = sendEmailNotif(deps, owner, subject, body)
	case models.NotificationChannelWhatsapp:
		sendErr = sendWhatsappNotif(ctx, deps, owner, body)
	default:
		deps.Logger.Info("Notification disabled for owner", zap.String("resource_id", owner.ResourceID), zap.String("channel", string(owner.Channel)))
		return map[string]interface{}{"status": "skipped", "channel": string(owner.Channel)}, nil
	}

	if sendErr != nil {
		deps.Logger.Warn("Failed to notify owner",
			zap.String("resource_id", owner.ResourceID),
			zap.String("channel", string(owner.Channel)),
			zap.Int("attempt", attempt),
			zap.Error(sendErr),
		)
		return nil, sendErr
	}

	return map[string]interface{}{
		"status":     "success",
		"channel":    string(owner.Channel),
		"booking_id": args.BookingID,
	}, nil
}

// NotifyOwnerTask is the singleton instance of NotifyOwnerTaskDef
var NotifyOwnerTask = &NotifyOwnerTaskDef{}

func ownerMessage(owner models.Owner, args services.NotifyOwnerArgs) (string, string) {
	var subject, headline string
	switch args.PaymentStatus {
	case models.PaymentStatusRefunded:
		subject = "Booking refunded / تم استرداد مبلغ الحجز"
		headline = "A booking was refunded. / تم استرداد مبلغ حجز."
	default:
		subject = "New paid booking / حجز مدفوع جديد"
		headline = "A booking has been paid. / تم دفع حجز جديد."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", headline)
	if owner.Name != "" {
		fmt.Fprintf(&b, "%s\n", owner.Name)
	}
	fmt.Fprintf(&b, "Booking: %s (%s)\n", args.BookingID, args.BookingType)
	fmt.Fprintf(&b, "Amount: %s SAR\n", args.Amount)
	if args.Reference != "" {
		fmt.Fprintf(&b, "Reference: %s\n", args.Reference)
	}
	return subject, b.String()
}

func sendEmailNotif(deps *Deps, owner models.Owner, subject, body string) error {
	if deps.Mailer == nil {
		return fmt.Errorf("email is not configured")
	}
	if owner.Email == "" {
		return fmt.Errorf("owner has no email address")
	}
	return deps.Mailer.SendEmail([]string{owner.Email}, subject, body)
}

func sendWhatsappNotif(ctx context.Context, deps *Deps, owner models.Owner, body string) error {
	if deps.Whatsapp == nil {
		return fmt.Errorf("whatsapp is not configured")
	}

	var chatID string
	if owner.WhatsappTargetType == models.WhatsappTargetTypeGroup {
		chatID = owner.WhatsappGroupID
		if chatID == "" {
			return fmt.Errorf("group ID is empty")
		}
		if !strings.HasSuffix(chatID, "@g.us") {
			chatID = chatID + "@g.us"
		}
	} else {
		chatID = owner.Phone
		if chatID == "" {
			return fmt.Errorf("owner has no phone number")
		}
	}

	return deps.Whatsapp.SendMessage(ctx, chatID, body)
}
