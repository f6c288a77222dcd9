package dto

import (
	"courier-dispatch-service/internal/domain"
	"time"
)

type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING IN_PROGRESS DELIVERED CANCELLED"`
}

type RoutePointResponse struct {
	Time     time.Time     `json:"time"`
	Location PointResponse `json:"location"`
	Status   string        `json:"status"`
}

type TrackingResponse struct {
	OrderID             string               `json:"orderId"`
	Status              string               `json:"status"`
	CurrentLocation     PointResponse        `json:"currentLocation"`
	Destination         PointResponse        `json:"destination"`
	RemainingEtaMinutes int                  `json:"remainingEtaMinutes"`
	RemainingDistanceKm float64              `json:"remainingDistanceKm"`
	RouteHistory        []RoutePointResponse `json:"routeHistory"`
}

func Tracking(d domain.TrackedDelivery) TrackingResponse {
	res := TrackingResponse{
		OrderID:             d.OrderID,
		Status:              string(d.Status),
		CurrentLocation:     Point(d.CurrentLocation),
		Destination:         Point(d.Destination),
		RemainingEtaMinutes: d.RemainingEtaMinutes,
		RemainingDistanceKm: d.RemainingDistanceKm,
		RouteHistory:        make([]RoutePointResponse, 0, len(d.RouteHistory)),
	}
	for _, p := range d.RouteHistory {
		res.RouteHistory = append(res.RouteHistory, RoutePointResponse{
			Time:     p.Time,
			Location: Point(p.Location),
			Status:   string(p.Status),
		})
	}
	return res
}
