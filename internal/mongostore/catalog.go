package mongostore

import (
	"context"
	"time"

	"consultbook/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) UpsertService(ctx context.Context, service *models.Service) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if service.CreatedAt.IsZero() {
		service.CreatedAt = now
	}
	service.UpdatedAt = now
	_, err := s.db.Collection(collServices).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: service.ID}}, service, options.Replace().SetUpsert(true))
	return classify("upsert service", err)
}

func (s *Store) UpsertConsultant(ctx context.Context, consultant *models.Consultant) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if consultant.CreatedAt.IsZero() {
		consultant.CreatedAt = now
	}
	consultant.UpdatedAt = now
	_, err := s.db.Collection(collConsultants).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: consultant.ID}}, consultant, options.Replace().SetUpsert(true))
	return classify("upsert consultant", err)
}

func (s *Store) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	if err := s.db.Collection(collServices).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&svc); err != nil {
		return nil, classify("get service", err)
	}
	return &svc, nil
}

func (s *Store) GetConsultant(ctx context.Context, id string) (*models.Consultant, error) {
	var c models.Consultant
	if err := s.db.Collection(collConsultants).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&c); err != nil {
		return nil, classify("get consultant", err)
	}
	return &c, nil
}

func (s *Store) ListServices(ctx context.Context) ([]*models.Service, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(collServices).Find(ctx, bson.D{{Key: "is_active", Value: true}}, opts)
	if err != nil {
		return nil, classify("list services", err)
	}
	services := make([]*models.Service, 0)
	if err := cursor.All(ctx, &services); err != nil {
		return nil, classify("list services", err)
	}
	return services, nil
}
