package ports

import (
	"context"
	"courier-dispatch-service/internal/domain"
)

// OrderGateway is the persistence boundary for orders.
type OrderGateway interface {
	// Persist a new order and return its id.
	CreateOrder(ctx context.Context, draft domain.OrderDraft) (string, error)
	GetOrder(ctx context.Context, id string) (domain.OrderRecord, error)
	// List orders owned by the authenticated user.
	ListUserOrders(ctx context.Context) ([]domain.OrderRecord, error)
}

// CourierSource lists couriers that can take a new order.
type CourierSource interface {
	ListAvailableCouriers(ctx context.Context) ([]domain.Courier, error)
}

// CredentialProvider returns the bearer token for gateway calls.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}
