package database

import (
	"context"
	"time"

	"consultbook/internal/models"
)

func (db *DB) UpsertService(ctx context.Context, service *models.Service) error {
	now := time.Now().UTC()
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now

	query := `INSERT INTO services (id, name, description, price, duration_minutes, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              name = excluded.name,
	              description = excluded.description,
	              price = excluded.price,
	              duration_minutes = excluded.duration_minutes,
	              is_active = excluded.is_active,
	              updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		service.ID, service.Name, service.Description, service.Price, service.DurationMinutes,
		service.IsActive, service.CreatedAt, service.UpdatedAt)
	return classify("upsert service", err)
}

func (db *DB) UpsertConsultant(ctx context.Context, consultant *models.Consultant) error {
	now := time.Now().UTC()
	if consultant.CreatedAt.IsZero() {
		consultant.CreatedAt = now
	}
	consultant.UpdatedAt = now

	query := `INSERT INTO consultants (id, name, specialty, bio, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              name = excluded.name,
	              specialty = excluded.specialty,
	              bio = excluded.bio,
	              is_active = excluded.is_active,
	              updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		consultant.ID, consultant.Name, consultant.Specialty, consultant.Bio,
		consultant.IsActive, consultant.CreatedAt, consultant.UpdatedAt)
	return classify("upsert consultant", err)
}

func (db *DB) GetService(ctx context.Context, id string) (*models.Service, error) {
	var s models.Service
	query := `SELECT id, name, description, price, duration_minutes, is_active, created_at, updated_at
	          FROM services WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, classify("get service", err)
	}
	return &s, nil
}

func (db *DB) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	var c models.Consultant
	query := `SELECT id, name, specialty, bio, is_active, created_at, updated_at FROM consultants WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Specialty, &c.Bio, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, classify("get consultant", err)
	}
	return &c, nil
}

// ListServices returns active services sorted by name.
func (db *DB) ListServices(ctx context.Context) ([]*models.Service, error) {
	query := `SELECT id, name, description, price, duration_minutes, is_active, created_at, updated_at
	          FROM services WHERE is_active = 1 ORDER BY name ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("list services", err)
	}
	defer rows.Close()

	services := make([]*models.Service, 0)
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, classify("scan service", err)
		}
		services = append(services, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list services", err)
	}
	return services, nil
}
