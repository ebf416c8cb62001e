package models

import "time"

type Service struct {
	ID              string    `yaml:"id" json:"id" bson:"_id"`
	Name            string    `yaml:"name" json:"name" bson:"name"`
	Description     string    `yaml:"description" json:"description" bson:"description"`
	Price           int64     `yaml:"price" json:"price" bson:"price"`
	DurationMinutes int       `yaml:"duration_minutes" json:"duration_minutes" bson:"duration_minutes"`
	IsActive        bool      `yaml:"is_active" json:"is_active" bson:"is_active"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at" bson:"updated_at"`
}

type Consultant struct {
	ID        string    `yaml:"id" json:"id" bson:"_id"`
	Name      string    `yaml:"name" json:"name" bson:"name"`
	Specialty string    `yaml:"specialty" json:"specialty" bson:"specialty"`
	Bio       string    `yaml:"bio" json:"bio" bson:"bio"`
	IsActive  bool      `yaml:"is_active" json:"is_active" bson:"is_active"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at" bson:"updated_at"`
}

// Catalog is the seed file layout.
type Catalog struct {
	Services    []Service    `yaml:"services"`
	Consultants []Consultant `yaml:"consultants"`
}
