package export

import (
	"context"
	"fmt"
	"log/slog"

	"ecomtools/pkg/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoExporter inserts one document per record into a collection named after the table.
type MongoExporter struct {
	client *mongo.Client
	db     string
	RunID  string
}

func NewMongoExporter(ctx context.Context, uri, database, runID string) (*MongoExporter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if database == "" {
		database = "ecomtools"
	}
	return &MongoExporter{client: client, db: database, RunID: runID}, nil
}

func (e *MongoExporter) Export(ctx context.Context, name string, t models.Table) error {
	docs := Documents(e.RunID, t)
	if len(docs) == 0 {
		return nil
	}
	res, err := e.client.Database(e.db).Collection(name).InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("insert %s: %w", name, err)
	}
	slog.Info("exported", "collection", name, "documents", len(res.InsertedIDs))
	return nil
}

func (e *MongoExporter) Close(ctx context.Context) error {
	return e.client.Disconnect(ctx)
}

// Documents converts a table to BSON documents, one per row, with absent values as null.
func Documents(runID string, t models.Table) []interface{} {
	header := t.Header()
	values := t.Values()
	docs := make([]interface{}, 0, len(values))
	for _, rec := range values {
		doc := make(bson.D, 0, len(header)+1)
		if runID != "" {
			doc = append(doc, bson.E{Key: "run_id", Value: runID})
		}
		for i, h := range header {
			var v interface{}
			if i < len(rec) {
				v = models.Plain(rec[i])
			}
			doc = append(doc, bson.E{Key: h, Value: v})
		}
		docs = append(docs, doc)
	}
	return docs
}
