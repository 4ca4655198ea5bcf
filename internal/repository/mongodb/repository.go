package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const dailyReportsCollection = "daily_reports"

// Repository defines the interface for closed-day storage.
type Repository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
	ListDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: dailyReportsCollection,
	}
	index := mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := repo.collection().Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to index daily reports: %w", err)
	}
	return repo, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveDailyReport stores a closed day, replacing an earlier close of the same date.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.collection().ReplaceOne(ctx, bson.M{"date": report.Date}, report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily report: %w", err)
	}
	return nil
}

// ListDailyReports returns the most recent closed days, newest first.
func (r *MongoDBRepository) ListDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.DailyReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode daily reports: %w", err)
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
