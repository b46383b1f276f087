// Package data provides the chat server's models and their storage backends:
// MongoDB, SQLite and an in-memory store.
package data

import (
	"context" // Used for cancellation and timeouts
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"  // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo" // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/normalize"
)

// userDoc is the users collection document.
type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	FirstName string        `bson:"first_name"`
	LastName  string        `bson:"last_name"`
	CreatedAt time.Time     `bson:"created_at"`
}

func (d userDoc) user() *User {
	return &User{
		ID:        d.ID.Hex(),
		FirstName: d.FirstName,
		LastName:  d.LastName,
		CreatedAt: d.CreatedAt,
	}
}

// UsersStore performs user DB operations.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	coll *mongo.Collection
}

var _ UserRepository = (*UsersStore)(nil)

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document.
func (u *UsersStore) CreateUser(ctx context.Context, firstName, lastName string) (*User, error) {
	doc := userDoc{
		FirstName: normalize.Name(firstName),
		LastName:  normalize.Name(lastName),
		CreatedAt: time.Now().UTC(),
	}

	// MongoDB auto-generates the _id field
	result, err := u.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.user(), nil
}

// GetUserByID finds a user by its hex ObjectID. A malformed id is reported
// as ErrUserNotFound, the same as an unknown one.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var doc userDoc
	err = u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return doc.user(), nil
}

// ListUsers returns every user in creation order.
func (u *UsersStore) ListUsers(ctx context.Context) ([]*User, error) {
	// ObjectIDs grow with insertion time, so sorting on _id breaks ties
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := u.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}
