package bot

import (
	"context"

	"petprint-bot/internal/storage"
	"petprint-bot/pkg/square"
)

// Messenger delivers prompts over the chat channel.
type Messenger interface {
	// ReplyTo answers one inbound event.
	ReplyTo(ctx context.Context, replyToken string, prompts []Prompt) error
	// PushTo sends an unsolicited message to a user.
	PushTo(ctx context.Context, userID string, prompts []Prompt) error
}

// PaymentLinkProvider creates a hosted checkout page for an order.
type PaymentLinkProvider interface {
	CreatePaymentLink(ctx context.Context, items []square.LineItem, referenceID string) (string, error)
}

// OrderArchive records completed orders.
type OrderArchive interface {
	SaveOrder(ctx context.Context, order storage.Order) (int64, error)
}
