package conversation

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stegochat/internal/model"
)

type (
	// ConversationRepo persists each conversation as a single append-only
	// message array. Order is load-bearing: a message's nonce and model
	// context both come from its position, so messages are only ever
	// appended, never rewritten or removed.
	ConversationRepo struct {
		collection *mongo.Collection
	}

	document struct {
		Participants []string        `bson:"participants"`
		Messages     []model.Message `bson:"messages"`
	}
)

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		collection: db.Collection("conversations"),
	}
}

// conversationKey gives both speakers the same document regardless of who
// asks.
func conversationKey(a, b string) []string {
	key := []string{a, b}
	sort.Strings(key)
	return key
}

func (r *ConversationRepo) Load(ctx context.Context, a, b string) ([]model.Message, error) {
	filter := bson.M{
		"participants": conversationKey(a, b),
	}

	var doc document
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return doc.Messages, nil
}

func (r *ConversationRepo) Append(ctx context.Context, a, b string, msg model.Message) error {
	filter := bson.M{
		"participants": conversationKey(a, b),
	}
	// the equality filter seeds participants on upsert
	update := bson.M{
		"$push": bson.M{"messages": msg},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}
