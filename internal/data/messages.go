package data

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// messageDoc is the messages collection document.
type messageDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Text      string        `bson:"text"`
	UserID    string        `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
	SavedAt   time.Time     `bson:"saved_at"`
}

func (d messageDoc) message() *Message {
	return &Message{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
		SavedAt:   d.SavedAt,
	}
}

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is reference to "messages" collection in MongoDB
	coll *mongo.Collection
}

var _ MessageRepository = (*MessagesStore)(nil)

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// SaveMessage inserts a message document and returns the saved record.
func (m *MessagesStore) SaveMessage(ctx context.Context, text, userID string, createdAt time.Time) (*Message, error) {
	doc := messageDoc{
		Text:      text,
		UserID:    userID,
		CreatedAt: createdAt.UTC(), // author time; kept from the first attempt on retries
		SavedAt:   time.Now().UTC(),
	}

	result, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.message(), nil
}

// ListMessages returns every message ordered by created_at, oldest first.
func (m *MessagesStore) ListMessages(ctx context.Context) ([]*Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	// Ensure cursor is closed when done
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, d.message())
	}
	return msgs, nil
}
