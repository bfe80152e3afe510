package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jlynch25/golang-ticketing/config"
	"github.com/jlynch25/golang-ticketing/ledger"
	"github.com/jlynch25/golang-ticketing/network"
	"github.com/jlynch25/golang-ticketing/notify"
	"github.com/jlynch25/golang-ticketing/ticketing"
	"github.com/jlynch25/golang-ticketing/wallet"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrNoSigner is returned when a local mutation is run without --signer.
var ErrNoSigner = errors.New("--signer is required to act on the local ledger")

// app holds what every command shares.
type app struct {
	configPath string
	signer     string
	nodeAddr   string

	cfg *config.Config
	log *logrus.Logger
	out io.Writer

	// openStore is swapped in tests.
	openStore func(cfg *config.Config, log logrus.FieldLogger) (ledger.Store, error)

	closers []io.Closer
}

func newApp(out io.Writer) *app {
	return &app{log: logrus.New(), out: out, openStore: openStore}
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return cfg.Log.Apply(a.log)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("close")
		}
	}
	a.closers = nil
}

// openStore opens the configured backend.
func openStore(cfg *config.Config, log logrus.FieldLogger) (ledger.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return ledger.NewMemoryStore(), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Store.Redis.Addr, err)
		}
		return ledger.NewRedisStore(client, cfg.Store.Redis.Prefix), nil
	default:
		return ledger.OpenBadger(cfg.Store.Path, log)
	}
}

// localLedger is the local store plus the program and journal running on it.
type localLedger struct {
	store   ledger.Store
	journal *ledger.Journal
	program *ticketing.Program
}

func (a *app) openLedger() (*localLedger, error) {
	store, err := a.openStore(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)

	journal := ledger.NewJournal(store)
	opts := []ticketing.Option{
		ticketing.WithLogger(a.log),
		ticketing.WithVerifyPolicy(a.cfg.VerifyPolicy()),
		ticketing.WithObserver(ticketing.JournalObserver(journal, a.log)),
	}

	if a.cfg.Notify.Enabled {
		pub, err := notify.NewPublisher(a.cfg.Notify.URL, a.cfg.Notify.Exchange, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub)
		opts = append(opts, ticketing.WithObserver(pub))
	}

	return &localLedger{
		store:   store,
		journal: journal,
		program: ticketing.NewProgram(store, opts...),
	}, nil
}

// nodeConfig builds the network config from the node section. A client
// node binds an ephemeral port.
func (a *app) nodeConfig(client bool) (network.Config, error) {
	cfg := network.Config{
		Host:    net.ParseIP(a.cfg.Node.Host),
		Port:    a.cfg.Node.Port,
		Address: a.cfg.Node.Address,
	}
	if cfg.Host == nil {
		return cfg, fmt.Errorf("node.host: invalid ip %q", a.cfg.Node.Host)
	}
	if client {
		cfg.Port, cfg.Address = 0, ""
	}
	if a.cfg.Node.Key != "" {
		key, err := network.ParsePrivateKey(a.cfg.Node.Key)
		if err != nil {
			return cfg, err
		}
		cfg.PrivateKey = key
	}
	return cfg, nil
}

func (a *app) remote() (*network.Client, error) {
	cfg, err := a.nodeConfig(true)
	if err != nil {
		return nil, err
	}
	node, err := network.NewNode(cfg, nil, a.log)
	if err != nil {
		return nil, err
	}
	if err := node.Listen(); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, node)
	return network.NewClient(node, a.nodeAddr), nil
}

// executor runs instructions either on the local ledger as --signer or on
// a remote node as this node's identity.
type executor interface {
	Execute(ctx context.Context, ins ticketing.Instruction) (ticketing.Result, error)
}

type localExecutor struct {
	program *ticketing.Program
	signer  wallet.Address
}

func (e localExecutor) Execute(ctx context.Context, ins ticketing.Instruction) (ticketing.Result, error) {
	return e.program.Execute(ctx, e.signer, ins)
}

type remoteExecutor struct {
	client *network.Client
}

func (e remoteExecutor) Execute(ctx context.Context, ins ticketing.Instruction) (ticketing.Result, error) {
	return e.client.Submit(ctx, ins)
}

// executor picks remote mode when --node is set. needSigner marks
// instructions that mutate.
func (a *app) executor(needSigner bool) (executor, error) {
	if a.nodeAddr != "" {
		client, err := a.remote()
		if err != nil {
			return nil, err
		}
		return remoteExecutor{client: client}, nil
	}

	if needSigner && a.signer == "" {
		return nil, ErrNoSigner
	}
	l, err := a.openLedger()
	if err != nil {
		return nil, err
	}
	return localExecutor{program: l.program, signer: wallet.Address(a.signer)}, nil
}

func (a *app) run(ctx context.Context, needSigner bool, ins ticketing.Instruction) (ticketing.Result, error) {
	exec, err := a.executor(needSigner)
	if err != nil {
		return ticketing.Result{}, err
	}
	return exec.Execute(ctx, ins)
}
