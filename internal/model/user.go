package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	// User is a directory entry on the relay. No key material lives here:
	// conversation secrets are derived from a password the two speakers
	// share out of band.
	User struct {
		ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
		Name      string             `json:"name" bson:"name"`
		CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	}
)
