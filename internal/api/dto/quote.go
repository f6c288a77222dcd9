package dto

import "courier-dispatch-service/internal/domain"

type QuoteRequest struct {
	PickupAddress   string   `json:"pickupAddress" binding:"required"`
	DeliveryAddress string   `json:"deliveryAddress" binding:"required"`
	Category        string   `json:"category"`
	WeightKg        *float64 `json:"weightKg" binding:"omitempty,gt=0"`
	Urgency         string   `json:"urgency"`
	Insured         bool     `json:"insured"`
}

type OrderRequest struct {
	QuoteRequest
	CourierID string `json:"courierId"`
}

type PointResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type AddressResponse struct {
	Address string         `json:"address"`
	Point   *PointResponse `json:"point"`
}

type PackageResponse struct {
	Category string  `json:"category"`
	WeightKg float64 `json:"weightKg"`
	Urgency  string  `json:"urgency"`
	Insured  bool    `json:"insured"`
}

type QuoteValues struct {
	DistanceKm float64 `json:"distanceKm"`
	CostAmount float64 `json:"costAmount"`
	EtaMinutes int     `json:"etaMinutes"`
}

type QuoteResponse struct {
	Pickup   AddressResponse `json:"pickup"`
	Delivery AddressResponse `json:"delivery"`
	Package  PackageResponse `json:"package"`
	Quote    QuoteValues     `json:"quote"`
}

type OrderCreatedResponse struct {
	ID    string      `json:"id"`
	Quote QuoteValues `json:"quote"`
}

type CourierResponse struct {
	ID              string  `json:"id"`
	FullName        string  `json:"fullName"`
	Transport       string  `json:"transport"`
	Rating          float64 `json:"rating"`
	DeliveriesCount int     `json:"deliveriesCount"`
}

type ListCouriersResponse struct {
	Couriers []CourierResponse `json:"couriers"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func Point(p domain.GeoPoint) PointResponse {
	return PointResponse{Lat: p.Lat, Lng: p.Lng}
}

func Address(a domain.Address) AddressResponse {
	res := AddressResponse{Address: a.Text}
	if a.Point != nil {
		p := Point(*a.Point)
		res.Point = &p
	}
	return res
}

func Package(p domain.PackageSpec) PackageResponse {
	return PackageResponse{
		Category: string(p.Category),
		WeightKg: p.WeightKg,
		Urgency:  string(p.Urgency),
		Insured:  p.Insured,
	}
}

func Quote(q domain.Quote) QuoteValues {
	return QuoteValues{
		DistanceKm: q.DistanceKm,
		CostAmount: q.CostAmount,
		EtaMinutes: q.EtaMinutes,
	}
}
