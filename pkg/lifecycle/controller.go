package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/eosio-elastic/indexer/pkg/esclient"
	"github.com/eosio-elastic/indexer/pkg/filter"
	"github.com/eosio-elastic/indexer/pkg/gate"
	"github.com/eosio-elastic/indexer/pkg/heartbeat"
	"github.com/eosio-elastic/indexer/pkg/hostevents"
	"github.com/eosio-elastic/indexer/pkg/ingress"
	"github.com/eosio-elastic/indexer/pkg/projector"
	"github.com/eosio-elastic/indexer/pkg/realtime"
	"github.com/eosio-elastic/indexer/pkg/retry"
	"github.com/eosio-elastic/indexer/pkg/serializer"
	"github.com/eosio-elastic/indexer/pkg/staging"
	"github.com/eosio-elastic/indexer/pkg/worker"
	"go.uber.org/zap"
)

// Controller owns startup, run, and shutdown ordering for the whole
// pipeline (spec §4.7, component C10).
type Controller struct {
	cfg    Config
	logger *zap.Logger

	client     *esclient.Client
	staging    *staging.Staging
	gate       *gate.Gate
	serializer *serializer.Serializer
	projector  *projector.Projector
	filter     *filter.Filter
	publisher  *realtime.Publisher
	heartbeat  *heartbeat.Ticker
	worker     *worker.Worker
	ingress    *ingress.Ingress

	unsubscribe []func()
	workerDone  chan struct{}

	quit sync.Once
	Quit func()
}

// New wires every collaborator from cfg. Quit is invoked on a fatal search
// client error (spec §7: "requests process-wide shutdown"); if the caller
// leaves Quit nil, a fatal error is only logged.
func New(cfg Config, logger *zap.Logger, publisher *realtime.Publisher) *Controller {
	client := esclient.New(esclient.Opts{
		Endpoints: cfg.Endpoints,
		IndexName: cfg.IndexName,
	})
	cache := abicache.New(cfg.AbiCacheSize)
	ser := serializer.New(cache, newAccountAbiSource(client))
	proj := projector.New(client, ser, logger)
	f := filter.New(cfg.FilterOnStar, cfg.FilterOn, cfg.FilterOut)
	g := gate.New(cfg.StartBlockNum)
	st := staging.New(cfg.MaxQueueSize, logger)

	c := &Controller{
		cfg:        cfg,
		logger:     logger,
		client:     client,
		staging:    st,
		gate:       g,
		serializer: ser,
		projector:  proj,
		filter:     f,
		publisher:  publisher,
		heartbeat:  heartbeat.New(cfg.HeartbeatSpec, st, cache, logger),
		ingress:    ingress.New(st, logger),
		workerDone: make(chan struct{}),
	}

	c.worker = &worker.Worker{
		Staging:    st,
		Client:     client,
		Filter:     f,
		Serializer: ser,
		Projector:  proj,
		Gate:       g,
		ChainID:    cfg.ChainID,
		Store:      cfg.Store,
		Logger:     logger,
		Publisher:  publisher,
		OnFatal:    c.onFatal,
	}
	return c
}

func (c *Controller) onFatal(op string, err error) {
	c.logger.Error("fatal search client error, requesting shutdown", zap.String("op", op), zap.Error(err))
	c.quit.Do(func() {
		if c.Quit != nil {
			c.Quit()
		}
	})
}

// Start performs the spec §4.7 startup sequence: initialize client (already
// done in New) → optionally delete_index → create_index → seed the system
// account doc if accounts is empty → start the worker goroutine → subscribe
// the four callbacks.
func (c *Controller) Start(ctx context.Context, host HostEmitter) error {
	if c.cfg.DeleteIndexOnStartup {
		if err := retry.Do(ctx, retry.StartupPolicy(), c.logger, "delete_index", func() error {
			return c.client.DeleteIndex(ctx)
		}); err != nil {
			c.logger.Warn("delete_index failed, continuing", zap.Error(err))
		}
	}

	if err := retry.Do(ctx, retry.StartupPolicy(), c.logger, "create_index", func() error {
		return c.client.CreateIndex(ctx, indexMappings())
	}); err != nil {
		return fmt.Errorf("create_index: %w", err)
	}

	if err := c.seedSystemAccount(ctx); err != nil {
		return fmt.Errorf("seed system account: %w", err)
	}

	go func() {
		defer close(c.workerDone)
		c.worker.Run(ctx)
	}()

	c.unsubscribe = []func(){
		host.SubscribeAcceptedTransaction(c.ingress.AcceptedTransaction),
		host.SubscribeAppliedTransaction(c.ingress.AppliedTransaction),
		host.SubscribeAcceptedBlock(c.ingress.AcceptedBlock),
		host.SubscribeIrreversibleBlock(c.ingress.IrreversibleBlock),
	}

	c.heartbeat.Start()
	c.logger.Info("indexer started",
		zap.Int("maxQueueSize", c.cfg.MaxQueueSize),
		zap.Int("abiCacheSize", c.cfg.AbiCacheSize),
		zap.String("indexName", c.cfg.IndexName),
		zap.Uint64("startBlockNum", c.cfg.StartBlockNum))
	return nil
}

// seedSystemAccount indexes a bare document for the system account if the
// accounts collection is empty (spec §4.7), so setabi/newaccount projection
// for the system account itself has a document to update.
func (c *Controller) seedSystemAccount(ctx context.Context) error {
	count, err := c.client.Count(ctx, "accounts")
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	doc := hostevents.AccountDoc{
		Name:     serializer.SystemAccount,
		CreateAt: hostevents.Timestamp(time.Now().UnixMilli()),
	}
	return c.client.Index(ctx, "accounts", doc, "")
}

// Shutdown performs the spec §4.7 shutdown sequence: unsubscribe the four
// callbacks → set done and notify the condition variable → join the worker.
func (c *Controller) Shutdown(ctx context.Context) error {
	for _, unsub := range c.unsubscribe {
		unsub()
	}
	c.heartbeat.Stop()

	c.staging.Shutdown()

	select {
	case <-c.workerDone:
	case <-ctx.Done():
		return fmt.Errorf("shutdown: worker did not drain before context done: %w", ctx.Err())
	}

	if c.publisher != nil {
		c.publisher.Close()
	}
	return nil
}
