package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"briefing-trends/pkg/domain"
)

// TranscriptMirror copies extracted transcripts to a MongoDB collection,
// one document per slug.
type TranscriptMirror struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewTranscriptMirror connects to uri and verifies the connection.
func NewTranscriptMirror(ctx context.Context, uri, databaseName, collectionName string) (*TranscriptMirror, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &TranscriptMirror{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}, nil
}

// Close closes the MongoDB connection
func (m *TranscriptMirror) Close(ctx context.Context) error {
	if m.mongoClient == nil {
		return nil
	}
	return m.mongoClient.Disconnect(ctx)
}

// Save upserts doc keyed by slug.
func (m *TranscriptMirror) Save(ctx context.Context, doc *domain.TranscriptDocument) error {
	filter := bson.M{"slug": doc.Slug}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to mirror %s: %w", doc.Slug, err)
	}
	return nil
}
