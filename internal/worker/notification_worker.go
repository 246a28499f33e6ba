package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the dispatcher.
// Handlers run synchronously on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger == nil {
		return
	}
	names := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		names = append(names, string(t))
	}
	logger.Info("notification handlers registered", zap.Strings("event_types", names))
}
