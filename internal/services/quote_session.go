package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/ports"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SessionState int

const (
	StateEmpty SessionState = iota
	StateAddressesEntered
	StateResolving
	StateQuoted
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAddressesEntered:
		return "addresses_entered"
	case StateResolving:
		return "resolving"
	case StateQuoted:
		return "quoted"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transition is delivered to subscribers after every committed state change.
// Reason is the tagged failure reason when To is StateFailed.
type Transition struct {
	From   SessionState
	To     SessionState
	Reason string
	Err    error
}

// AddressResolver is the part of Resolver the session depends on.
type AddressResolver interface {
	Resolve(ctx context.Context, addressText string, countryBias string) (domain.GeoPoint, error)
}

// SessionSnapshot is a copy of the session's observable state.
type SessionSnapshot struct {
	State     SessionState
	Pickup    domain.Address
	Delivery  domain.Address
	Package   domain.PackageSpec
	Quote     *domain.Quote
	CourierID string
	Failure   string
}

type SessionDeps struct {
	Resolver    AddressResolver
	Pricing     ports.PricingSource
	Gateway     ports.OrderGateway
	Couriers    ports.CourierSource
	CountryBias string
}

// QuoteSession holds one draft order between form input and submission.
//
// All inputs are edited through setters. A quote is only ever produced by
// RequestQuote from the current inputs, and any later edit discards it, so a
// stale quote cannot be submitted.
type QuoteSession struct {
	deps SessionDeps

	mu        sync.Mutex
	state     SessionState
	failure   error
	pickup    domain.Address
	delivery  domain.Address
	pkg       domain.PackageSpec
	quote     *domain.Quote
	courierID string

	nextSub   int
	listeners map[int]func(Transition)
}

// NewQuoteSession requires a resolver. Without a gateway the session can
// still quote, but Submit fails.
func NewQuoteSession(deps SessionDeps) (*QuoteSession, error) {
	if deps.Resolver == nil {
		return nil, errors.New("new quote session: resolver is nil")
	}

	return &QuoteSession{
		deps:      deps,
		pkg:       domain.NewPackageSpec(domain.CategorySmall),
		listeners: make(map[int]func(Transition)),
	}, nil
}

// Subscribe registers fn for state transitions and returns a function that
// removes it. fn runs on the goroutine that caused the transition and must
// not call back into the session synchronously.
func (s *QuoteSession) Subscribe(fn func(Transition)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// setState must be called with mu held. It returns the notifications to
// deliver once mu is released.
func (s *QuoteSession) setState(to SessionState, err error) []func() {
	from := s.state
	s.state = to
	s.failure = err
	if from == to && err == nil {
		return nil
	}

	t := Transition{From: from, To: to, Err: err}
	if err != nil {
		t.Reason = domain.FailureReason(err)
	}

	notes := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fn := fn
		notes = append(notes, func() { fn(t) })
	}
	return notes
}

func notify(notes []func()) {
	for _, n := range notes {
		n()
	}
}

func (s *QuoteSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *QuoteSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		State:     s.state,
		Pickup:    s.pickup,
		Delivery:  s.delivery,
		Package:   s.pkg,
		CourierID: s.courierID,
		Failure:   domain.FailureReason(s.failure),
	}
	if s.quote != nil {
		q := *s.quote
		snap.Quote = &q
	}
	return snap
}

// CanSubmit reports whether Submit may be offered to the user.
func (s *QuoteSession) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateQuoted && s.quote != nil && s.quote.CostAmount > 0
}

// edit applies fn to the inputs and invalidates any quote. Edits are refused
// while a resolution or submission is in flight.
func (s *QuoteSession) edit(fn func()) error {
	s.mu.Lock()
	switch s.state {
	case StateResolving, StateSubmitting:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("edit session while %s: %w", state, domain.ErrSessionBusy)
	}

	fn()
	s.quote = nil

	next := StateEmpty
	if strings.TrimSpace(s.pickup.Text) != "" && strings.TrimSpace(s.delivery.Text) != "" {
		next = StateAddressesEntered
	}
	notes := s.setState(next, nil)
	s.mu.Unlock()

	notify(notes)
	return nil
}

func (s *QuoteSession) SetPickupAddress(text string) error {
	return s.edit(func() { s.pickup = domain.Address{Text: text} })
}

func (s *QuoteSession) SetDeliveryAddress(text string) error {
	return s.edit(func() { s.delivery = domain.Address{Text: text} })
}

func (s *QuoteSession) SetPackage(spec domain.PackageSpec) error {
	return s.edit(func() { s.pkg = spec })
}

// SetCategory switches category and applies its default weight.
func (s *QuoteSession) SetCategory(c domain.PackageCategory) error {
	if !c.Valid() {
		return fmt.Errorf("set category %q: %w", c, domain.ErrInvalidInput)
	}
	return s.edit(func() {
		s.pkg.Category = c
		s.pkg.WeightKg = c.DefaultWeightKg()
	})
}

func (s *QuoteSession) SetWeight(kg float64) error {
	return s.edit(func() { s.pkg.WeightKg = kg })
}

func (s *QuoteSession) SetUrgency(u domain.Urgency) error {
	if !u.Valid() {
		return fmt.Errorf("set urgency %q: %w", u, domain.ErrInvalidInput)
	}
	return s.edit(func() { s.pkg.Urgency = u })
}

func (s *QuoteSession) SetInsured(insured bool) error {
	return s.edit(func() { s.pkg.Insured = insured })
}

// RequestQuote resolves both addresses, one after the other, and computes a
// quote. It is valid from AddressesEntered and Failed; while a previous call
// is still resolving it returns ErrSessionBusy.
func (s *QuoteSession) RequestQuote(ctx context.Context) (_ domain.Quote, err error) {
	defer obs.Time(ctx, "session.RequestQuote")(&err)

	s.mu.Lock()
	switch s.state {
	case StateAddressesEntered, StateFailed:
	case StateResolving:
		s.mu.Unlock()
		return domain.Quote{}, fmt.Errorf("request quote: %w", domain.ErrSessionBusy)
	default:
		state := s.state
		s.mu.Unlock()
		return domain.Quote{}, fmt.Errorf("request quote from %s: %w", state, domain.ErrInvalidState)
	}
	if err := s.pkg.Validate(); err != nil {
		s.mu.Unlock()
		return domain.Quote{}, fmt.Errorf("request quote: %w", err)
	}

	pickupText, deliveryText, pkg := s.pickup.Text, s.delivery.Text, s.pkg
	s.pickup.Point, s.delivery.Point = nil, nil
	s.quote = nil
	notes := s.setState(StateResolving, nil)
	s.mu.Unlock()
	notify(notes)

	quote, pickup, delivery, err := s.computeQuote(ctx, pickupText, deliveryText, pkg)

	s.mu.Lock()
	if err != nil {
		notes = s.setState(StateFailed, err)
		s.mu.Unlock()
		notify(notes)
		return domain.Quote{}, fmt.Errorf("request quote: %w", err)
	}
	s.pickup.Point = &pickup
	s.delivery.Point = &delivery
	s.quote = &quote
	notes = s.setState(StateQuoted, nil)
	s.mu.Unlock()
	notify(notes)

	return quote, nil
}

// computeQuote runs without the lock held. Inputs cannot change meanwhile
// because edits are refused in StateResolving.
func (s *QuoteSession) computeQuote(
	ctx context.Context,
	pickupText string,
	deliveryText string,
	pkg domain.PackageSpec,
) (domain.Quote, domain.GeoPoint, domain.GeoPoint, error) {
	// Sequential on purpose: the resolver spaces provider calls, and a failed
	// pickup must not spend a request on the delivery address.
	pickup, err := s.deps.Resolver.Resolve(ctx, pickupText, s.deps.CountryBias)
	if err != nil {
		return domain.Quote{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("pickup: %w", err)
	}
	delivery, err := s.deps.Resolver.Resolve(ctx, deliveryText, s.deps.CountryBias)
	if err != nil {
		return domain.Quote{}, domain.GeoPoint{}, domain.GeoPoint{}, fmt.Errorf("delivery: %w", err)
	}

	params := s.pricingParameters(ctx)

	quote, err := ComputeQuote(&pickup, &delivery, pkg, params)
	if err != nil {
		return domain.Quote{}, domain.GeoPoint{}, domain.GeoPoint{}, err
	}
	return quote, pickup, delivery, nil
}

// pricingParameters never fails; an unavailable source means the default
// price per kg.
func (s *QuoteSession) pricingParameters(ctx context.Context) domain.PricingParameters {
	fallback := domain.PricingParameters{PricePerKg: DefaultPricePerKg}
	if s.deps.Pricing == nil {
		return fallback
	}

	params, err := s.deps.Pricing.PricingParameters(ctx)
	if err != nil {
		obs.FromContext(ctx).WithError(err).Warn("pricing parameters unavailable, using default")
		return fallback
	}
	if !(params.PricePerKg > 0) {
		return fallback
	}
	return params
}

// Submit persists the quoted order for courierID through the gateway and
// returns the new order id. On success the session is reset to Empty.
func (s *QuoteSession) Submit(ctx context.Context, courierID string) (_ string, err error) {
	defer obs.Time(ctx, "session.Submit")(&err)

	s.mu.Lock()
	if s.state != StateQuoted || s.quote == nil {
		state := s.state
		s.mu.Unlock()
		return "", fmt.Errorf("submit from %s: %w", state, domain.ErrQuoteNotReady)
	}
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		s.mu.Unlock()
		return "", fmt.Errorf("submit: %w", domain.ErrNoCourierSelected)
	}
	if s.deps.Gateway == nil {
		s.mu.Unlock()
		return "", errors.New("submit: no order gateway configured")
	}
	if !(s.quote.CostAmount > 0) {
		err := fmt.Errorf("submit: cost %v: %w", s.quote.CostAmount, domain.ErrQuoteNotReady)
		notes := s.setState(StateFailed, err)
		s.mu.Unlock()
		notify(notes)
		return "", err
	}

	s.courierID = courierID
	draft := domain.OrderDraft{
		IdempotencyKey: uuid.NewString(),
		PickupAddress: domain.OrderAddress{
			Address: normalize(s.pickup.Text),
			Lat:     s.pickup.Point.Lat,
			Lng:     s.pickup.Point.Lng,
		},
		DeliveryAddress: domain.OrderAddress{
			Address: normalize(s.delivery.Text),
			Lat:     s.delivery.Point.Lat,
			Lng:     s.delivery.Point.Lng,
		},
		Package:       s.pkg,
		DistanceKm:    s.quote.DistanceKm,
		EstimatedTime: s.quote.EtaMinutes,
		Cost:          s.quote.CostAmount,
		CourierID:     courierID,
	}
	notes := s.setState(StateSubmitting, nil)
	s.mu.Unlock()
	notify(notes)

	id, err := s.deps.Gateway.CreateOrder(ctx, draft)

	s.mu.Lock()
	if err != nil {
		notes = s.setState(StateFailed, err)
		s.mu.Unlock()
		notify(notes)
		return "", fmt.Errorf("submit: %w", err)
	}

	notes = s.setState(StateSubmitted, nil)
	s.reset()
	notes = append(notes, s.setState(StateEmpty, nil)...)
	s.mu.Unlock()
	notify(notes)

	obs.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":   id,
		"courier_id": courierID,
	}).Info("order submitted")

	return id, nil
}

// reset clears the form for reuse. Must be called with mu held.
func (s *QuoteSession) reset() {
	s.pickup = domain.Address{}
	s.delivery = domain.Address{}
	s.pkg = domain.NewPackageSpec(domain.CategorySmall)
	s.quote = nil
	s.courierID = ""
}

// AvailableCouriers lists couriers the user can pick for Submit.
func (s *QuoteSession) AvailableCouriers(ctx context.Context) ([]domain.Courier, error) {
	if s.deps.Couriers == nil {
		return nil, errors.New("available couriers: no courier source configured")
	}
	couriers, err := s.deps.Couriers.ListAvailableCouriers(ctx)
	if err != nil {
		return nil, fmt.Errorf("available couriers: %w", err)
	}
	return couriers, nil
}
