package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rocketshoes/cart/internal/domain"
)

// Messages shown to the shopper.
const (
	MsgOutOfStock   = "Quantidade solicitada fora de estoque"
	MsgAdded        = "Item adicionado com sucesso."
	MsgAddFailed    = "Erro na adição do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
	MsgUpdateFailed = "Erro na alteração de quantidade do produto"
)

// Notifier delivers user-facing notifications. Delivery is fire-and-forget,
// a sink that fails must not fail the cart operation.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

func Success(message string, productID int64) domain.Notification {
	return newNotification(domain.LevelSuccess, message, productID)
}

func Error(message string, productID int64) domain.Notification {
	return newNotification(domain.LevelError, message, productID)
}

func newNotification(level domain.NotificationLevel, message string, productID int64) domain.Notification {
	return domain.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}
}

// Multi fans a notification out to every sink.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, sink := range m {
		sink.Notify(ctx, n)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, domain.Notification) {}
