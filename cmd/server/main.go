package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"stegochat/internal/repository/user"
	redisSvc "stegochat/internal/service/redis"
	"stegochat/internal/service/server"
	"stegochat/internal/utils/log"
)

func main() {
	mongoDBClient, err := initMongo()
	if err != nil {
		panic(err)
	}

	db := mongoDBClient.Database("stegochat")

	rdb := redis.NewClient(&redis.Options{
		Addr:     "localhost:6379", // Redis server
		Password: "",               // no password by default
		DB:       0,                // use default DB
	})

	redisService := redisSvc.NewRedis(rdb)

	userRepo := user.NewUserRepo(db)
	relay := server.NewRelayServer(userRepo, redisService)

	go func() {
		if err := relay.Run("localhost:9090"); err != nil {
			log.Fatal("relay server stopped", zap.Error(err))
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done
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
