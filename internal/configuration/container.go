package configuration

import (
	"Campus/internal/chat"
	"Campus/internal/db"
	"Campus/internal/handler"
	"Campus/internal/hub"
	"Campus/internal/media"
	"Campus/internal/presence"
	"Campus/internal/repo"
	"Campus/internal/repo/memory"
	"Campus/internal/signaling"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// stores groups the repositories of one store driver.
type stores struct {
	messages  repo.MessageRepository
	typing    repo.TypingRepository
	summaries repo.SummaryRepository
	calls     repo.CallRepository
}

type Container struct {
	Config Config
	Logger *zap.Logger

	Chats    *chat.Service
	Tracker  *presence.Tracker
	Exchange *signaling.Exchange
	Sweeper  *signaling.Sweeper
	Hub      *hub.Hub
	Media    media.Factory

	ChatHandler    handler.ChatHandler
	CallHandler    handler.CallHandler
	MonitorHandler handler.MonitorHandler

	// private - for cleanup
	mongoClient *mongo.Database
}

// replaced in tests
var (
	openConnection = db.OpenConnection
	ensureIndexes  = repo.EnsureIndexes
)

func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// BuildContainer wires every component from the config file at configPath.
func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewContainer(*config)
}

func NewContainer(config Config) (*Container, error) {
	logger, err := NewLogger(config.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	c := &Container{
		Config: config,
		Logger: logger,
	}

	s, err := c.openStores()
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	c.Chats = chat.NewService(s.messages, s.summaries, config.Chat.MaxMessageLength, logger.Named("chat"))
	c.Tracker = presence.NewTracker(s.typing, config.Presence.StaleAfter, logger.Named("presence"))
	c.Exchange = signaling.NewExchange(s.calls, config.Calls.StaleTTL, logger.Named("signaling"))
	c.Sweeper = signaling.NewSweeper(c.Exchange, config.Calls.SweepInterval, logger.Named("sweeper"))
	c.Media = media.NewPionFactory(config.Calls.IceServers, logger.Named("media"))

	c.Hub = hub.NewHub(c.Chats, c.Tracker, c.Exchange, hub.Config{
		AllowedOrigins: config.Server.AllowedOrigins,
		RateLimit:      config.Hub.RateLimit,
		RateBurst:      config.Hub.RateBurst,
		QuietInterval:  config.Presence.QuietInterval,
	}, logger.Named("hub"))

	c.ChatHandler = handler.NewChatHandler(c.Chats)
	c.CallHandler = handler.NewCallHandler(c.Exchange)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))

	c.Sweeper.Start(context.Background())

	logger.Info("container built",
		zap.String("store", config.Store.Driver),
		zap.Int("app_port", config.Server.AppPort),
		zap.Int("socket_port", config.Server.SocketPort),
	)
	return c, nil
}

func (c *Container) openStores() (*stores, error) {
	if c.Config.Store.Driver == DriverMemory {
		return &stores{
			messages:  memory.NewMessageRepository(),
			typing:    memory.NewTypingRepository(),
			summaries: memory.NewSummaryRepository(),
			calls:     memory.NewCallRepository(),
		}, nil
	}

	sc := c.Config.Store
	con, err := openConnection(sc.Uri, sc.Database)
	if err != nil {
		return nil, fmt.Errorf("open mongo: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensureIndexes(ctx, con, repo.Collections{
		Messages:   sc.MessagesCollection,
		Counters:   sc.CountersCollection,
		Typing:     sc.TypingCollection,
		Summaries:  sc.SummariesCollection,
		Calls:      sc.CallsCollection,
		Candidates: sc.CandidatesCollection,
	}); err != nil {
		if derr := con.Client().Disconnect(ctx); derr != nil {
			c.Logger.Warn("failed to close MongoDB connection", zap.Error(derr))
		}
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	c.mongoClient = con

	return &stores{
		messages:  repo.NewMessageRepositoryFromDB(con, sc.MessagesCollection, sc.CountersCollection, c.Logger.Named("messages")),
		typing:    repo.NewTypingRepository(con, sc.TypingCollection, c.Logger.Named("typing")),
		summaries: repo.NewSummaryRepository(con, sc.SummariesCollection, c.Logger.Named("summaries")),
		calls:     repo.NewCallRepository(con, sc.CallsCollection, sc.CandidatesCollection, c.Logger.Named("calls")),
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}

	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
