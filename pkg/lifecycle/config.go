// Package lifecycle implements the lifecycle controller (spec §4.7/§9,
// component C10): startup ordering (client init, optional index drop,
// index creation, seed doc, worker start, subscription), and shutdown
// ordering (unsubscribe, signal done, join worker).
//
// Grounded on original_source's plugin_initialize/plugin_startup/
// plugin_shutdown and on the teacher's app/controller.App/cmd/indexer -
// a top-level struct wiring collaborators, built from env vars via
// pkg/utils.Env*.
package lifecycle

import (
	"github.com/eosio-elastic/indexer/pkg/filter"
	"github.com/eosio-elastic/indexer/pkg/utils"
	"github.com/eosio-elastic/indexer/pkg/worker"
)

// Config holds every recognized environment variable (spec §6). Filter
// entries and store_* flags are parsed once at startup.
type Config struct {
	Endpoints            []string
	MaxQueueSize         int
	AbiCacheSize         int
	IndexName            string
	StartBlockNum        uint64
	DeleteIndexOnStartup bool

	FilterOnStar bool
	FilterOn     []filter.Entry
	FilterOut    []filter.Entry

	Store worker.StoreFlags

	ChainID       []byte
	HeartbeatSpec string
}

// LoadConfig reads Config from the environment, applying spec §6 defaults.
func LoadConfig() Config {
	endpoint := utils.Env("ES_ENDPOINT", "http://localhost:9200")
	return Config{
		Endpoints:            []string{endpoint},
		MaxQueueSize:         utils.EnvInt("MAX_QUEUE_SIZE", 1024),
		AbiCacheSize:         utils.EnvInt("ABI_CACHE_SIZE", 2048),
		IndexName:            utils.Env("INDEX_NAME", "eos"),
		StartBlockNum:        utils.EnvUint64("START_BLOCK_NUM", 0),
		DeleteIndexOnStartup: utils.EnvBool("DELETE_INDEX_ON_STARTUP", true),

		FilterOnStar: utils.EnvBool("FILTER_ON_STAR", true),
		FilterOn:     filter.ParseEntries(utils.Env("FILTER_ON", "")),
		FilterOut:    filter.ParseEntries(utils.Env("FILTER_OUT", "")),

		Store: worker.StoreFlags{
			Blocks:            utils.EnvBool("STORE_BLOCKS", true),
			BlockStates:       utils.EnvBool("STORE_BLOCK_STATES", true),
			Transactions:      utils.EnvBool("STORE_TRANSACTIONS", true),
			TransactionTraces: utils.EnvBool("STORE_TRANSACTION_TRACES", true),
			ActionTraces:      utils.EnvBool("STORE_ACTION_TRACES", true),
		},

		HeartbeatSpec: utils.Env("HEARTBEAT_CRON_SPEC", ""),
	}
}
