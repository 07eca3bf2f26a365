package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stegochat/internal/codec"
	"stegochat/internal/lm/ngram"
	"stegochat/internal/pipeline"
	"stegochat/internal/repository/conversation"
	"stegochat/internal/repository/user"
	"stegochat/internal/service/app"
	"stegochat/internal/service/chat"
)

func main() {
	// os.Args[0] is the program name, os.Args[1:] are arguments
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <username>")
	}

	username := os.Args[1]

	mongoDBClient, err := initMongo()
	if err != nil {
		panic(err)
	}

	db := mongoDBClient.Database("stegochat")

	lmModel, err := ngram.Shared()
	if err != nil {
		panic(err)
	}

	pipe, err := pipeline.New(lmModel, codec.DefaultSamplerConfig())
	if err != nil {
		panic(err)
	}

	ctx := context.Background()

	userRepo := user.NewUserRepo(db)
	convRepo := conversation.NewConversationRepo(db)
	chatService := chat.NewService(pipe)

	client := app.NewApp(chatService, userRepo, convRepo)
	client.Run(ctx, username)

	client.Stop()
}

func initMongo() (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
