package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stegochat/internal/model"
	userRepo "stegochat/internal/repository/user"
	"stegochat/internal/service/redis"
	"stegochat/internal/utils/log"
)

type (
	// RelayServer forwards envelopes between connected speakers and parks
	// them in redis while a recipient is offline. It never holds keys or
	// plaintext: everything it routes is already disguised text.
	RelayServer struct {
		mu           sync.Mutex // guards mapper
		mapper       map[string]*websocket.Conn
		userRepo     *userRepo.UserRepo
		redisService *redis.RedisService
	}
)

func NewRelayServer(userRepo *userRepo.UserRepo, redisSvc *redis.RedisService) *RelayServer {
	return &RelayServer{
		mapper:       make(map[string]*websocket.Conn),
		userRepo:     userRepo,
		redisService: redisSvc,
	}
}

func (s *RelayServer) Run(addr string) error {
	r := mux.NewRouter()

	r.HandleFunc("/init", s.HandleInitWS()).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}", s.GetUser()).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}", s.CreateUser()).Methods(http.MethodPut)
	return http.ListenAndServe(addr, r)
}

func (s *RelayServer) HandleInitWS() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userID")
		if userID == "" {
			http.Error(w, "userID cannot be empty", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		_, taken := s.mapper[userID]
		s.mu.Unlock()
		if taken {
			http.Error(w, "duplicated userID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		s.mu.Lock()
		s.mapper[userID] = conn
		s.mu.Unlock()
		go s.processWSMessage(userID, conn)
		if err := s.ForwardUnsentEnvelopes(userID); err != nil {
			log.Error("forward envelopes failed", zap.Error(err))
		}
	}
}

func (s *RelayServer) processWSMessage(userID string, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("worker web socket closed", zap.Error(err))
			s.mu.Lock()
			delete(s.mapper, userID)
			s.mu.Unlock()
			conn.Close()
			break
		}

		var envelope model.Envelope
		err = json.Unmarshal(data, &envelope)
		if err != nil {
			log.Error("Unmarshal envelope failed", zap.Error(err))
			continue
		}

		s.mu.Lock()
		peer, ok := s.mapper[envelope.To]
		s.mu.Unlock()
		if ok {
			peer.WriteMessage(websocket.TextMessage, data)
		} else {
			if err := s.PutEnvelopesToCache(context.TODO(), envelope.To, []*model.Envelope{&envelope}); err != nil {
				log.Error("PutEnvelopesToCache failed", zap.Error(err))
			}
		}
	}
}

// GetUser serves the directory lookup clients use before opening a chat.
func (s *RelayServer) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		vars := mux.Vars(r)
		name := vars["name"]
		log.Info("GetUser", zap.String("name", name))

		user, err := s.userRepo.GetByName(ctx, name)
		if err != nil {
			log.Error("Get user failed", zap.Error(err))
			http.Error(w, "Get user failed", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "user does not exist", http.StatusNotFound)
			return
		}

		data, err := json.Marshal(user)
		if err != nil {
			log.Error("Get user failed", zap.Error(err))
			http.Error(w, "Get user failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// CreateUser registers a directory entry if the name is still free.
func (s *RelayServer) CreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		vars := mux.Vars(r)
		name := vars["name"]

		existing, err := s.userRepo.GetByName(ctx, name)
		if err != nil {
			log.Error("Create user failed", zap.Error(err))
			http.Error(w, "Create user failed", http.StatusInternalServerError)
			return
		}
		if existing != nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		if _, err := s.userRepo.Create(ctx, &model.User{Name: name}); err != nil {
			log.Error("Create user failed", zap.Error(err))
			http.Error(w, "Create user failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *RelayServer) ForwardUnsentEnvelopes(userID string) error {
	envelopes, err := s.GetEnvelopesFromCache(context.TODO(), userID)
	if err != nil {
		log.Error("ForwardUnsentEnvelopes failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	conn, ok := s.mapper[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	for _, envelope := range envelopes {
		conn.WriteJSON(envelope)
	}
	return nil
}
