package notify

import (
	"context"

	"github.com/rocketshoes/cart/internal/domain"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.Int64("product_id", n.ProductID),
	}
	if n.Level == domain.LevelError {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Info(n.Message, fields...)
}
