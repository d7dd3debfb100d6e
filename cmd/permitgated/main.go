// Command permitgated runs the settlement engine behind an HTTP API.
//
// Configuration comes from the environment (a .env file is honored):
//
//	PERMITGATE_RPC_URL         JSON-RPC endpoint of the chain
//	PERMITGATE_CHAIN_ID        decimal chain id
//	PERMITGATE_ENGINE_ADDRESS  this engine's identity (EIP-712 verifying contract)
//	PERMITGATE_PRIVATE_KEY     hex key that signs and funds ledger transactions
//	PERMITGATE_REGISTRY        deployed allowance-registry address
//	PERMITGATE_OWNER           admin address
//	PERMITGATE_RECIPIENT       settlement destination address
//	PERMITGATE_REDIS_URL       optional; redis://... enables the durable store
//	PERMITGATE_LISTEN_ADDR     optional; defaults to :8402
package main

import (
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	permitgate "github.com/permitgate/permitgate-go"
	"github.com/permitgate/permitgate-go/api"
	"github.com/permitgate/permitgate-go/engine"
	"github.com/permitgate/permitgate-go/ledger"
	"github.com/permitgate/permitgate-go/store"
)

type config struct {
	rpcURL     string
	chainID    *big.Int
	engineAddr common.Address
	privateKey string
	registry   common.Address
	owner      common.Address
	recipient  common.Address
	redisURL   string
	listenAddr string
}

func loadConfig() (*config, error) {
	_ = godotenv.Load()

	cfg := &config{
		rpcURL:     os.Getenv("PERMITGATE_RPC_URL"),
		privateKey: os.Getenv("PERMITGATE_PRIVATE_KEY"),
		redisURL:   os.Getenv("PERMITGATE_REDIS_URL"),
		listenAddr: os.Getenv("PERMITGATE_LISTEN_ADDR"),
	}
	if cfg.rpcURL == "" {
		return nil, fmt.Errorf("PERMITGATE_RPC_URL is required")
	}
	if cfg.privateKey == "" {
		return nil, fmt.Errorf("PERMITGATE_PRIVATE_KEY is required")
	}
	if cfg.listenAddr == "" {
		cfg.listenAddr = ":8402"
	}

	chainID, ok := new(big.Int).SetString(os.Getenv("PERMITGATE_CHAIN_ID"), 10)
	if !ok {
		return nil, fmt.Errorf("PERMITGATE_CHAIN_ID must be a decimal integer")
	}
	cfg.chainID = chainID

	for _, v := range []struct {
		env  string
		dest *common.Address
	}{
		{"PERMITGATE_ENGINE_ADDRESS", &cfg.engineAddr},
		{"PERMITGATE_REGISTRY", &cfg.registry},
		{"PERMITGATE_OWNER", &cfg.owner},
		{"PERMITGATE_RECIPIENT", &cfg.recipient},
	} {
		raw := os.Getenv(v.env)
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%s must be a hex address", v.env)
		}
		*v.dest = common.HexToAddress(raw)
	}
	return cfg, nil
}

// logEvents writes engine notifications to the process log.
type logEvents struct{}

func (logEvents) Paid(ev permitgate.PaidEvent) {
	log.Printf("paid payer=%s token=%s amount=%s tx=%s",
		ev.Payer.Hex(), ev.Token.Hex(), ev.Amount, ev.TransactionID.Hex())
}

func (logEvents) Refunded(ev permitgate.RefundedEvent) {
	log.Printf("refunded payer=%s token=%s amount=%s tx=%s",
		ev.Payer.Hex(), ev.Token.Hex(), ev.Amount, ev.TransactionID.Hex())
}

func (logEvents) ConfigChanged(action string, subject common.Address) {
	log.Printf("config %s subject=%s", action, subject.Hex())
}

func newStore(redisURL string) (store.TransactionStore, error) {
	if redisURL == "" {
		log.Printf("no PERMITGATE_REDIS_URL set, using in-memory transaction store")
		return store.NewMemoryStore(), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PERMITGATE_REDIS_URL: %w", err)
	}
	return store.NewRedisStore(redis.NewClient(opts)), nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := ethclient.Dial(cfg.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", cfg.rpcURL, err)
	}
	defer client.Close()

	ethLedger, err := ledger.NewEthLedger(client, cfg.privateKey, cfg.chainID, cfg.registry)
	if err != nil {
		return err
	}

	txStore, err := newStore(cfg.redisURL)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		ChainID:   cfg.chainID,
		Self:      cfg.engineAddr,
		Owner:     cfg.owner,
		Recipient: cfg.recipient,
		Ledger:    ethLedger,
		Registry:  ethLedger.Registry(),
		Store:     txStore,
		Events:    logEvents{},
	})
	if err != nil {
		return err
	}

	srv := api.NewServer(eng)
	log.Printf("permitgated listening on %s (chain %s, engine %s, submitter %s)",
		cfg.listenAddr, cfg.chainID, cfg.engineAddr.Hex(), ethLedger.From().Hex())
	return srv.Router().Run(cfg.listenAddr)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
