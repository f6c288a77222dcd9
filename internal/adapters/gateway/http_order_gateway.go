package gateway

import (
	"bytes"
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// HTTPOrderGateway talks to the order lifecycle backend. It implements
// ports.OrderGateway and ports.CourierSource.
type HTTPOrderGateway struct {
	session     *http.Client
	baseURL     string
	credentials ports.CredentialProvider
	clock       clockwork.Clock
}

type Option func(*HTTPOrderGateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPOrderGateway) { g.session = c }
}

// WithClock sets the clock used for retry backoff.
func WithClock(c clockwork.Clock) Option {
	return func(g *HTTPOrderGateway) { g.clock = c }
}

func NewHTTPOrderGateway(baseURL string, credentials ports.CredentialProvider, opts ...Option) (*HTTPOrderGateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("order gateway base url is empty")
	}
	if credentials == nil {
		return nil, errors.New("order gateway credentials are nil")
	}

	g := &HTTPOrderGateway{
		session:     &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		credentials: credentials,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type wireAddress struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type createOrderRequest struct {
	PickupAddress   wireAddress `json:"pickupAddress"`
	DeliveryAddress wireAddress `json:"deliveryAddress"`
	PackageType     string      `json:"packageType"`
	Weight          float64     `json:"weight"`
	Urgency         string      `json:"urgency"`
	Insured         bool        `json:"insured"`
	Distance        float64     `json:"distance"`
	EstimatedTime   int         `json:"estimatedTime"`
	Cost            float64     `json:"cost"`
	CourierID       string      `json:"courierId"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

type orderResponse struct {
	ID              string      `json:"id"`
	Status          string      `json:"status"`
	PickupAddress   wireAddress `json:"pickupAddress"`
	DeliveryAddress wireAddress `json:"deliveryAddress"`
	Distance        float64     `json:"distance"`
	EstimatedTime   int         `json:"estimatedTime"`
	Cost            float64     `json:"cost"`
	CourierID       string      `json:"courierId"`
	CreatedAt       *time.Time  `json:"createdAt"`
}

type courierResponse struct {
	ID              string  `json:"id"`
	FullName        string  `json:"fullName"`
	Transport       string  `json:"transport"`
	Rating          float64 `json:"rating"`
	DeliveriesCount int     `json:"deliveriesCount"`
}

func toWire(a domain.OrderAddress) wireAddress {
	return wireAddress{Address: a.Address, Lat: a.Lat, Lng: a.Lng}
}

func (w wireAddress) toDomain() domain.OrderAddress {
	return domain.OrderAddress{Address: w.Address, Lat: w.Lat, Lng: w.Lng}
}

func (r orderResponse) toDomain() (domain.OrderRecord, error) {
	status, err := domain.ParseOrderStatus(r.Status)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("order %s: %w", r.ID, err)
	}
	rec := domain.OrderRecord{
		ID:              r.ID,
		Status:          status,
		PickupAddress:   r.PickupAddress.toDomain(),
		DeliveryAddress: r.DeliveryAddress.toDomain(),
		DistanceKm:      r.Distance,
		EstimatedTime:   r.EstimatedTime,
		Cost:            r.Cost,
		CourierID:       r.CourierID,
	}
	if r.CreatedAt != nil {
		rec.CreatedAt = *r.CreatedAt
	}
	return rec, nil
}

// getJSON performs a retried GET and decodes the body into out.
func (g *HTTPOrderGateway) getJSON(ctx context.Context, path string, out any) error {
	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	return nil
}

// CreateOrder posts the draft. The draft's idempotency key is sent on every
// attempt so a retried POST cannot create a second order.
func (g *HTTPOrderGateway) CreateOrder(ctx context.Context, draft domain.OrderDraft) (_ string, err error) {
	defer obs.Time(ctx, "gateway.CreateOrder")(&err)

	body, err := json.Marshal(createOrderRequest{
		PickupAddress:   toWire(draft.PickupAddress),
		DeliveryAddress: toWire(draft.DeliveryAddress),
		PackageType:     string(draft.Package.Category),
		Weight:          draft.Package.WeightKg,
		Urgency:         string(draft.Package.Urgency),
		Insured:         draft.Package.Insured,
		Distance:        draft.DistanceKm,
		EstimatedTime:   draft.EstimatedTime,
		Cost:            draft.Cost,
		CourierID:       draft.CourierID,
	})
	if err != nil {
		return "", fmt.Errorf("create order: encode: %w", err)
	}

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.newRequest(ctx, http.MethodPost, "/orders", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if draft.IdempotencyKey != "" {
			req.Header.Set("Idempotency-Key", draft.IdempotencyKey)
		}
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	var created createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("create order: decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", fmt.Errorf("create order: response has no id: %w", domain.ErrMalformedResponse)
	}

	return created.ID, nil
}

func (g *HTTPOrderGateway) GetOrder(ctx context.Context, id string) (_ domain.OrderRecord, err error) {
	defer obs.Time(ctx, "gateway.GetOrder")(&err)

	if strings.TrimSpace(id) == "" {
		return domain.OrderRecord{}, fmt.Errorf("get order: empty id: %w", domain.ErrInvalidInput)
	}

	var r orderResponse
	if err := g.getJSON(ctx, "/orders/"+url.PathEscape(id), &r); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("get order %s: %w", id, err)
	}

	rec, err := r.toDomain()
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return rec, nil
}

func (g *HTTPOrderGateway) ListUserOrders(ctx context.Context) (_ []domain.OrderRecord, err error) {
	defer obs.Time(ctx, "gateway.ListUserOrders")(&err)

	var rs []orderResponse
	if err := g.getJSON(ctx, "/orders/mine", &rs); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}

	out := make([]domain.OrderRecord, 0, len(rs))
	for _, r := range rs {
		rec, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("list user orders: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *HTTPOrderGateway) ListAvailableCouriers(ctx context.Context) (_ []domain.Courier, err error) {
	defer obs.Time(ctx, "gateway.ListAvailableCouriers")(&err)

	var rs []courierResponse
	if err := g.getJSON(ctx, "/couriers/available", &rs); err != nil {
		return nil, fmt.Errorf("list available couriers: %w", err)
	}

	out := make([]domain.Courier, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.Courier{
			ID:              r.ID,
			FullName:        r.FullName,
			Transport:       r.Transport,
			Rating:          r.Rating,
			DeliveriesCount: r.DeliveriesCount,
		})
	}
	return out, nil
}
