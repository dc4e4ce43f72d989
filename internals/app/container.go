package app

import (
	"context"
	"time"

	"pulsewatch/config"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"pulsewatch/internals/modules/incident"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/schedule"
	"pulsewatch/pkg/httpclient"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/redisstore"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Container struct {
	DB          *pgxpool.Pool
	RedisClient *redisstore.Client
	Logger      *zerolog.Logger
	Config      *config.Config

	// shared
	monitorRepo    *monitor.Repository
	monitorHandler *monitor.Handler
	dispatcher     *check.Dispatcher
	alertSvc       *alert.Service

	// memory mode
	cache  *schedule.Cache
	runner *schedule.Runner

	// queue mode
	rmqConn    *amqp091.Connection
	publisher  *rabbitmq.Publisher
	consumer   *rabbitmq.Consumer
	jobHandler *schedule.CheckJobHandler
	queueSched *schedule.QueueScheduler
	reclaimer  *schedule.Reclaimer
}

func NewContainer(ctx context.Context, db *pgxpool.Pool, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {

	validate := validator.New()

	monitorRepo := monitor.NewRepository(db, logger)
	incidentRepo := incident.NewRepository(db, logger)
	alertRepo := alert.NewRepository(db, logger)

	gate := alert.NewCooldownGate(cfg.Alert.Cooldown)
	alertSvc := alert.NewService(
		cfg.Alert.WorkerCount,
		cfg.Alert.QueueSize,
		gate,
		alertRepo,
		alert.NewLogSender(logger),
		logger,
	)

	engine := incident.NewEngine(incidentRepo, monitorRepo, alertSvc, logger)
	dispatcher := check.NewDispatcher(httpclient.NewHttpClient(), logger)

	monitorSvc := monitor.NewService(monitorRepo, logger)
	monitorHandler := monitor.NewHandler(monitorSvc, validate)

	c := &Container{
		DB:             db,
		Logger:         logger,
		Config:         cfg,
		monitorRepo:    monitorRepo,
		monitorHandler: monitorHandler,
		dispatcher:     dispatcher,
		alertSvc:       alertSvc,
	}

	switch cfg.Mode {
	case "queue":
		if err := c.buildQueueMode(cfg, monitorRepo, dispatcher, engine, logger); err != nil {
			return nil, err
		}

	default: // memory
		cache := schedule.NewCache()
		processor := schedule.NewProcessor(cache, monitorRepo, engine, logger)
		c.cache = cache
		c.runner = schedule.NewRunner(
			cfg.Scheduler.Interval,
			cfg.Scheduler.BatchSize,
			cache,
			monitorRepo,
			dispatcher,
			processor,
			logger,
		)
	}

	return c, nil
}

func (c *Container) buildQueueMode(
	cfg *config.Config,
	monitorRepo *monitor.Repository,
	dispatcher *check.Dispatcher,
	engine *incident.Engine,
	logger *zerolog.Logger,
) error {

	redisClient, err := redisstore.New(cfg.Redis)
	if err != nil {
		return err
	}
	c.RedisClient = redisClient

	conn, err := rabbitmq.NewConnection(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	if err := rabbitmq.SetupTopology(conn, cfg.RabbitMQ); err != nil {
		return err
	}
	c.rmqConn = conn

	publisher, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.ExchangeName, cfg.RabbitMQ.RoutingKey)
	if err != nil {
		return err
	}
	c.publisher = publisher

	consumer, err := rabbitmq.NewConsumer(conn, cfg.RabbitMQ.QueueName, cfg.RabbitMQ.WorkerCount, 60*time.Second)
	if err != nil {
		return err
	}
	c.consumer = consumer

	processor := schedule.NewProcessor(schedule.NewRedisState(redisClient), monitorRepo, engine, logger)

	c.jobHandler = schedule.NewCheckJobHandler(monitorRepo, dispatcher, processor, redisClient, logger)
	c.queueSched = schedule.NewQueueScheduler(
		cfg.Scheduler.Interval,
		cfg.Scheduler.BatchSize,
		cfg.Scheduler.VisibilityTimeout,
		cfg.Scheduler.StaggerMax,
		redisClient,
		publisher,
		monitorRepo,
		logger,
	)
	c.reclaimer = schedule.NewReclaimer(cfg.Reclaimer, redisClient, logger)

	return nil
}

// Run starts the background workers for the configured mode.
func (c *Container) Run(ctx context.Context) error {
	c.alertSvc.Run(ctx)

	if c.Config.Mode == "queue" {
		if err := c.queueSched.Seed(ctx); err != nil {
			return err
		}
		go c.queueSched.Run(ctx)
		go c.reclaimer.Run(ctx)
		StartConsumer(ctx, c)
		return nil
	}

	if err := c.seedCache(ctx); err != nil {
		return err
	}
	go c.runner.Run(ctx)
	return nil
}

// seedCache loads active monitors into the schedule cache, holding each to
// the same config bar a new monitor would face.
func (c *Container) seedCache(ctx context.Context) error {
	snaps, err := c.monitorRepo.ListActiveMonitors(ctx)
	if err != nil {
		return err
	}

	valid := make([]monitor.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if err := c.dispatcher.ValidateConfig(snap); err != nil {
			c.Logger.Warn().
				Err(err).
				Str("monitor_id", snap.ID.String()).
				Str("type", string(snap.Type)).
				Msg("monitor config invalid, not scheduling")
			continue
		}
		valid = append(valid, snap)
	}

	c.cache.Seed(valid, time.Now())
	c.Logger.Info().
		Int("scheduled", len(valid)).
		Int("skipped", len(snaps)-len(valid)).
		Msg("schedule cache seeded")
	return nil
}

func (c *Container) Shutdown(ctx context.Context) error {
	// drain pending alerts before the infra goes away
	c.alertSvc.Close()

	if c.consumer != nil {
		if err := c.consumer.Shutdown(ctx); err != nil {
			c.Logger.Error().Err(err).Msg("consumer shutdown failed")
		}
	}
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
	if c.rmqConn != nil {
		_ = c.rmqConn.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return nil
}
