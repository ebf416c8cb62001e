package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Feedback struct {
	ID                string    `json:"id" bson:"_id"`
	BookingID         string    `json:"booking_id" bson:"booking_id"`
	CustomerID        string    `json:"customer_id" bson:"customer_id"`
	ServiceID         string    `json:"service_id" bson:"service_id"`
	ConsultantID      *string   `json:"consultant_id,omitempty" bson:"consultant_id,omitempty"`
	ConsultantRating  int       `json:"consultant_rating" bson:"consultant_rating"`
	ConsultantComment string    `json:"consultant_comment" bson:"consultant_comment"`
	ServiceRating     int       `json:"service_rating" bson:"service_rating"`
	ServiceComment    string    `json:"service_comment" bson:"service_comment"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// RatingSummary is the read model for a service's average rating.
type RatingSummary struct {
	ServiceID string  `json:"service_id"`
	Average   float64 `json:"average"`
	Count     int64   `json:"count"`
}
