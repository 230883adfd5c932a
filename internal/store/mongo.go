package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patient-feedback-server/internal/domain"
)

// MongoStore is the durable record store backed by a MongoDB
// collection. One document per patient; a unique index on patient_id
// is the authoritative duplicate guard.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *logrus.Logger
}

// NewMongoStore connects to MongoDB, verifies the connection with a
// ping and returns a store bound to the configured collection.
func NewMongoStore(ctx context.Context, cfg domain.MongoConfig, logger *logrus.Logger) (*MongoStore, error) {
	uri := cfg.URI
	if uri == "" {
		uri = buildURI(cfg)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"database":   cfg.Database,
		"collection": cfg.Collection,
	}).Info("Connected to MongoDB")

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		log:        logger,
	}, nil
}

// buildURI assembles a connection string from host and credentials,
// URL-escaping both so special characters survive.
func buildURI(cfg domain.MongoConfig) string {
	if cfg.Username == "" {
		return fmt.Sprintf("mongodb://%s/", cfg.Host)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s/",
		url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password), cfg.Host)
}

// EnsureIndexes creates the unique patient_id index. Idempotent; safe
// to run at every startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "patient_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating patient_id index: %w", err)
	}
	return nil
}

// Insert stores a new feedback record. A uniqueness violation on
// patient_id maps to domain.ErrDuplicateRecord.
func (s *MongoStore) Insert(ctx context.Context, rec *domain.FeedbackRecord) error {
	_, err := s.collection.InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateRecord
		}
		s.log.WithFields(logrus.Fields{
			"patient_id": rec.PatientID,
			"error":      err,
		}).Error("Failed to insert feedback record")
		return fmt.Errorf("inserting feedback record: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"patient_id": rec.PatientID,
	}).Info("Feedback record inserted")

	return nil
}

// FindByPatientID retrieves one record by its natural key. Returns
// domain.ErrNotFound when no record matches.
func (s *MongoStore) FindByPatientID(ctx context.Context, patientID int) (*domain.FeedbackRecord, error) {
	var rec domain.FeedbackRecord
	err := s.collection.FindOne(ctx, bson.M{"patient_id": patientID}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("finding record by patient id: %w", err)
	}
	return &rec, nil
}

// Find returns all records matching the filter.
func (s *MongoStore) Find(ctx context.Context, filter domain.Filter) ([]domain.FeedbackRecord, error) {
	cursor, err := s.collection.Find(ctx, toBSON(filter))
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.FeedbackRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

// Count returns the number of records matching the filter.
func (s *MongoStore) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, toBSON(filter))
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// UpdateByPatientID applies a sparse patch to one record and returns
// the modified count (0 when no record matches).
func (s *MongoStore) UpdateByPatientID(ctx context.Context, patientID int, patch map[string]interface{}) (int64, error) {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"patient_id": patientID},
		bson.M{"$set": patch},
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to update feedback record")
		return 0, fmt.Errorf("updating feedback record: %w", err)
	}
	return result.ModifiedCount, nil
}

// DeleteByPatientID removes at most one record and returns the deleted
// count (0 when no record matches).
func (s *MongoStore) DeleteByPatientID(ctx context.Context, patientID int) (int64, error) {
	result, err := s.collection.DeleteOne(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to delete feedback record")
		return 0, fmt.Errorf("deleting feedback record: %w", err)
	}
	return result.DeletedCount, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toBSON translates a domain filter into a MongoDB query document.
// Substring conditions are regex-escaped so values match literally.
func toBSON(filter domain.Filter) bson.M {
	query := bson.M{}
	for field, cond := range filter {
		switch cond.Op {
		case domain.MatchSubstringCI:
			pattern := regexp.QuoteMeta(fmt.Sprintf("%v", cond.Value))
			query[field] = primitive.Regex{Pattern: pattern, Options: "i"}
		default:
			query[field] = cond.Value
		}
	}
	return query
}
