package conversation

import (
	"context"

	"chatshop/pkg/domain/model"
)

// Notifier delivers order notifications through the chat transport.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) NotifyAdmin(ctx context.Context, adminID model.UserID, summary model.OrderSummary) error {
	return n.sender.Send(ctx, adminOrderNotice(adminID, summary))
}

func (n *Notifier) NotifyCustomer(ctx context.Context, order model.Order) error {
	return n.sender.Send(ctx, customerDecisionNotice(order))
}
