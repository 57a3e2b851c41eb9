// Package heartbeat periodically logs staging-queue depth, adaptive-sleep
// backpressure, and ABI-cache occupancy: observability the pipeline needs
// but that no spec component owns outright.
//
// Grounded on the teacher's app/controller.App.SetupScheduler/StartCron
// (robfig/cron with WithSeconds and a panic-recovering chain).
package heartbeat

import (
	"github.com/eosio-elastic/indexer/pkg/abicache"
	"github.com/eosio-elastic/indexer/pkg/staging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec ticks every 30 seconds.
const DefaultSpec = "*/30 * * * * *"

// Ticker owns the cron schedule that emits periodic pipeline health logs.
type Ticker struct {
	cron    *cron.Cron
	staging *staging.Staging
	cache   *abicache.Cache
	logger  *zap.Logger
}

// New builds a Ticker on spec (cron.WithSeconds format), logging through
// logger.
func New(spec string, st *staging.Staging, cache *abicache.Cache, logger *zap.Logger) *Ticker {
	if spec == "" {
		spec = DefaultSpec
	}
	t := &Ticker{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		staging: st,
		cache:   cache,
		logger:  logger,
	}
	_, _ = t.cron.AddFunc(spec, t.tick)
	return t
}

func (t *Ticker) tick() {
	txMeta, txTrace, block, irreversible := t.staging.Depths()
	t.logger.Info("pipeline heartbeat",
		zap.Int("queueTransactionMeta", txMeta),
		zap.Int("queueTransactionTrace", txTrace),
		zap.Int("queueBlock", block),
		zap.Int("queueIrreversibleBlock", irreversible),
		zap.Int("adaptiveSleepMs", t.staging.AdaptiveSleepMs()),
		zap.Int("abiCacheSize", t.cache.Len()),
	)
}

// Start begins the scheduler.
func (t *Ticker) Start() {
	t.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight tick to finish.
func (t *Ticker) Stop() {
	<-t.cron.Stop().Done()
}
