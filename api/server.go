package api

import (
	"context"
	"fmt"

	"github.com/Kambolo/Picksy/api/controllers"
	"github.com/Kambolo/Picksy/api/transport"
	"github.com/Kambolo/Picksy/broadcast"
	"github.com/Kambolo/Picksy/broker"
	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/Kambolo/Picksy/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	config *Config
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
	}
}

func (s *Server) Start() {
	ctx := context.Background()
	r := transport.NewRouter(gin.DebugMode)

	// Create storage
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logging.Log.Errorf("failed to load AWS config: %v", err)
		panic("failed to load AWS config")
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)

	resultStorage := &storage.DynamoResultSetStorage{
		Client:    dynamoClient,
		TableName: s.config.TableNameResults,
	}
	var catalog storage.CatalogStorage = &storage.DynamoCatalogStorage{
		Client:            dynamoClient,
		CategoriesTable:   s.config.TableNameCategories,
		CategorySetsTable: s.config.TableNameCategorySets,
	}

	// Catalog reads go through redis when it is configured
	if s.config.RedisConfig.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     s.config.RedisConfig.Addr,
			Password: s.config.RedisConfig.Password,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Log.Errorf("failed to reach redis: %v", err)
			panic("failed to reach redis")
		}
		catalog = storage.NewCachedCatalog(redisClient, catalog, s.config.CatalogCacheTTL)
	}

	// Broadcast: in-process hub, plus the broker when one is configured
	hub := broadcast.NewHub(s.config.EventQueueSize)
	broadcasters := broadcast.Fanout{hub}
	if s.config.BrokerConfig.Host != "" {
		publisher, err := broadcast.NewStompPublisher(broadcast.StompConfig{
			Host:     s.config.BrokerConfig.Host,
			Username: s.config.BrokerConfig.Username,
			Password: s.config.BrokerConfig.Password,
		})
		if err != nil {
			logging.Log.Errorf("failed to connect to broker: %v", err)
			panic("failed to connect to broker")
		}
		broadcasters = append(broadcasters, publisher)
	}

	registry := room.NewRegistry()
	session := room.NewSession(registry, catalog, resultStorage, broadcasters)

	// A subscriber dropped for overflow is gone from the transport's point
	// of view, so treat it as a departure
	hub.OnDrop(func(roomCode string, participantID int64) {
		_ = session.Leave(ctx, roomCode, participantID)
	})
	// Evicted rooms have no event stream anymore, end every open one
	registry.OnEvict(hub.CloseRoom)

	go registry.RunJanitor(ctx, room.JanitorConfig{
		Interval:         s.config.JanitorInterval,
		IdleTimeout:      s.config.IdleTimeout,
		HeartbeatTimeout: s.config.HeartbeatTimeout,
	})

	if s.config.BrokerConfig.Host != "" {
		listener, err := broker.NewListener(broadcast.StompConfig{
			Host:     s.config.BrokerConfig.Host,
			Username: s.config.BrokerConfig.Username,
			Password: s.config.BrokerConfig.Password,
		}, session)
		if err != nil {
			logging.Log.Errorf("failed to connect command listener: %v", err)
			panic("failed to connect command listener")
		}
		go func() {
			if err := listener.Run(ctx); err != nil {
				logging.Log.Errorf("command listener stopped: %v", err)
			}
		}()
	}

	//Register controllers
	roomsController := controllers.NewRoomsController(session, catalog, hub)
	roomsController.RegisterRoutes(r)
	adminController := controllers.NewAdminController(registry)
	adminController.RegisterRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logging.Log.Info(fmt.Sprintf("Starting server on http://localhost:%d", s.config.Port))
	if err := r.Run(fmt.Sprintf(":%d", s.config.Port)); err != nil {
		logging.Log.Fatalf("Failed to run server: %v", err)
	}
}
