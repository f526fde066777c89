package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/fitduel-vn/fitduel/internal/aws/notification"
	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/cache"
	"github.com/fitduel-vn/fitduel/internal/realtime"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type server struct {
	address  string
	upgrader websocket.Upgrader

	config      Config
	hub         *realtime.Hub
	coordinator *Coordinator
}

type payload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewServer() *server {
	cfg := NewConfig()
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic(err)
	}

	storageClient := storage.NewClient(
		dynamodb.NewFromConfig(awsCfg),
		storage.Config{
			DuelsTableName:                aws.String(cfg.DuelsTableName),
			ChallengesTableName:           aws.String(cfg.ChallengesTableName),
			HealthDataTableName:           aws.String(cfg.HealthDataTableName),
			ApplicationEndpointsTableName: aws.String(cfg.ApplicationEndpointsTableName),
		},
	)
	cacheClient := cache.NewClient(redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	}))
	hub := realtime.NewHub()

	var pusher Pusher
	if cfg.PushEnabled {
		pusher = notification.NewClient(sns.NewFromConfig(awsCfg))
	}

	srv := &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		config: cfg,
		hub:    hub,
		coordinator: NewCoordinator(
			storageClient,
			cacheClient,
			hub,
			pusher,
			CoordinatorConfig{
				StakingWindow:        cfg.StakingWindow,
				ConfirmationWindow:   cfg.ConfirmationWindow,
				ForwardSkewTolerance: cfg.ForwardSkewTolerance,
			},
		),
	}
	return srv
}

// Start method    starts the duel server
func (s *server) Start() error {
	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("POST /search-opponent", s.handleSearchOpponent)
	http.HandleFunc("POST /stake-observed", s.handleStakeObserved)
	http.HandleFunc("POST /start-monitoring", s.handleStartMonitoring)
	http.HandleFunc("POST /submit-health-data", s.handleSubmitHealthData)
	http.HandleFunc("POST /update-duel", s.handleUpdateDuel)
	http.HandleFunc("POST /cancel-duel", s.handleCancelDuel)
	http.HandleFunc("POST /register-challenge", s.handleRegisterChallenge)
	http.HandleFunc("POST /register-push-endpoint", s.handleRegisterPushEndpoint)
	http.HandleFunc("GET /duel/{duelId}", s.handleGetDuel)
	logging.Info("duel server started", zap.String("port", s.config.Port))
	httpServer := &http.Server{
		Addr:        s.address,
		IdleTimeout: s.config.IdleTimeout,
	}
	return httpServer.ListenAndServe()
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(err.Error()))
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error(
			"failed to upgrade connection",
			zap.String("error", err.Error()),
		)
		return
	}
	conn := realtime.NewConn(ws)
	defer conn.Close()

	handle := s.hub.Register(conn)
	defer s.hub.Unregister(handle)

	conn.WriteJSON(realtime.Event{
		Type: "connected",
		Data: map[string]string{"connectionHandle": handle},
	})
	logging.Info("client connected",
		zap.String("user_id", userId),
		zap.String("connection_handle", handle),
	)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			logging.Info(
				"connection closed",
				zap.String("remote_address", conn.RemoteAddr()),
				zap.Error(err),
			)
			break
		}

		payload := payload{}
		if err := json.Unmarshal(message, &payload); err != nil {
			conn.Close()
			break
		}
		s.handleWebSocketMessage(r.Context(), conn, userId, handle, payload)
	}
}
