// Package node assembles the follower process: it validates the requested
// component set, registers every service in dependency order against a shared
// registry, and manages the lifecycle of the running system, gracefully
// closing all services when the process ends.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/syncstack/follower/api"
	"github.com/syncstack/follower/batchstatus"
	"github.com/syncstack/follower/checker"
	"github.com/syncstack/follower/client/eth"
	"github.com/syncstack/follower/client/mainnode"
	"github.com/syncstack/follower/cmd/follower/flags"
	"github.com/syncstack/follower/commitment"
	"github.com/syncstack/follower/config"
	"github.com/syncstack/follower/consensus"
	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/healthcheck"
	"github.com/syncstack/follower/merkle"
	"github.com/syncstack/follower/pruner"
	"github.com/syncstack/follower/runtime"
	"github.com/syncstack/follower/shared/cmd"
	"github.com/syncstack/follower/shared/prometheus"
	"github.com/syncstack/follower/shared/tracing"
	"github.com/syncstack/follower/shared/version"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/sync/executor"
	"github.com/syncstack/follower/sync/feed"
	"github.com/syncstack/follower/sync/persistence"
	"github.com/syncstack/follower/treefetcher"
)

var log = logrus.WithField("prefix", "node")

// FollowerNode handles the lifecycle of the entire system and registers
// services to a service registry.
type FollowerNode struct {
	cliCtx     *cli.Context
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *config.Config
	components []Component
	services   *runtime.ServiceRegistry
	lock       sync.RWMutex
	stop       chan struct{} // Channel to wait for termination notifications.
	fatal      chan error
	pools      *db.PoolSet
	mainClient *mainnode.Client
	l1Client   *eth.Client
}

// New creates a new node instance: it validates the requested component set
// before any resource is allocated, then registers every required service in
// dependency order.
func New(cliCtx *cli.Context) (*FollowerNode, error) {
	if err := tracing.Setup(
		"follower", // service name
		cliCtx.String(cmd.TracingProcessNameFlag.Name),
		cliCtx.String(cmd.TracingEndpointFlag.Name),
		cliCtx.Float64(cmd.TraceSampleFractionFlag.Name),
		cliCtx.Bool(cmd.EnableTracingFlag.Name),
	); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cliCtx)
	if err != nil {
		return nil, errors.Wrap(err, "could not load configuration")
	}

	// The component set is checked for legality before anything is
	// registered, so an illegal combination never leaves partially
	// allocated resources behind.
	components, err := parseComponents(cliCtx.String(flags.ComponentsFlag.Name))
	if err != nil {
		return nil, err
	}
	if err := validateComponents(components); err != nil {
		return nil, err
	}
	components = sortComponents(components)
	log.WithField("layers", strings.Join(layerPlan(components, cfg), ",")).Debug("Planned service expansion")

	ctx, cancel := context.WithCancel(cliCtx.Context)
	node := &FollowerNode{
		cliCtx:     cliCtx,
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		components: components,
		services:   runtime.NewServiceRegistry(),
		stop:       make(chan struct{}),
		fatal:      make(chan error, 1),
	}

	if err := node.registerHealthCheck(); err != nil {
		cancel()
		return nil, err
	}

	if cfg.Monitoring != nil {
		if err := node.registerPrometheusService(); err != nil {
			cancel()
			return nil, err
		}
	} else {
		log.Info("Monitoring is not configured, skipping the metrics exporter")
	}

	if err := node.startClients(); err != nil {
		cancel()
		return nil, err
	}

	if err := node.fetchRemoteConfig(); err != nil {
		node.closeClients()
		cancel()
		return nil, err
	}

	if err := node.runPreconditions(); err != nil {
		node.closeClients()
		cancel()
		return nil, err
	}

	for _, component := range components {
		if err := node.registerComponent(component); err != nil {
			node.closeClients()
			cancel()
			return nil, errors.Wrapf(err, "could not register the %s component", component)
		}
	}

	return node, nil
}

// Components returns the validated component set in expansion order.
func (n *FollowerNode) Components() []Component {
	return n.components
}

// Services exposes the registry for health aggregation.
func (n *FollowerNode) Services() *runtime.ServiceRegistry {
	return n.services
}

// Start the FollowerNode and kicks off every registered service.
func (n *FollowerNode) Start() {
	n.lock.Lock()

	log.WithFields(logrus.Fields{
		"version": version.GetVersion(),
	}).Info("Starting follower node")

	n.services.StartAll()

	stop := n.stop
	n.lock.Unlock()

	go func() {
		select {
		case err := <-n.fatal:
			log.WithError(err).Error("Fatal service failure, shutting down...")
			go n.Close()
		case <-stop:
		}
	}()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the follower node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *FollowerNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	select {
	case <-n.stop:
		return
	default:
	}

	log.Info("Stopping follower node")
	n.services.StopAll()
	n.closeClients()
	n.cancel()
	close(n.stop)
}

// onFatal escalates an unrecoverable service failure to node shutdown. A
// diverged or stalled follower must stop serving rather than keep running.
func (n *FollowerNode) onFatal(err error) {
	select {
	case n.fatal <- err:
	default:
	}
}

func (n *FollowerNode) startClients() error {
	pools, err := db.NewPoolSet(n.ctx, &db.PoolConfig{
		URL:                n.cfg.Required.DatabaseURL,
		MaxConns:           n.cfg.Optional.DatabaseMaxConnections,
		SlowQueryThreshold: n.cfg.Optional.SlowQueryThreshold,
	})
	if err != nil {
		return errors.Wrap(err, "could not connect the database pools")
	}
	n.pools = pools

	mainClient, err := mainnode.Dial(n.ctx, &mainnode.Config{
		EndpointURL:  n.cfg.Required.MainNodeURL,
		RateLimitRPS: n.cfg.Optional.MainNodeRateLimitRPS,
		ChainID:      n.cfg.Required.L2ChainID,
	})
	if err != nil {
		return errors.Wrap(err, "could not dial the main node")
	}
	n.mainClient = mainClient

	l1Client, err := eth.Dial(n.ctx, n.cfg.Required.L1ChainID, n.cfg.Required.L1EndpointURL)
	if err != nil {
		return errors.Wrap(err, "could not dial the L1 endpoint")
	}
	n.l1Client = l1Client
	return nil
}

func (n *FollowerNode) closeClients() {
	if n.l1Client != nil {
		n.l1Client.Close()
	}
	if n.mainClient != nil {
		n.mainClient.Close()
	}
	if n.pools != nil {
		n.pools.Close()
	}
}

// fetchRemoteConfig resolves the contract addresses the node needs from the
// main node rather than from local flags, so they cannot drift from the
// chain being replicated.
func (n *FollowerNode) fetchRemoteConfig() error {
	bridge, diamondProxy, err := n.mainClient.BridgeContracts(n.ctx)
	if err != nil {
		return errors.Wrap(err, "could not fetch bridge contracts from the main node")
	}
	n.cfg.Remote = &config.Remote{
		BridgeAddr:       bridge,
		DiamondProxyAddr: diamondProxy,
	}
	log.WithFields(logrus.Fields{
		"bridge":       bridge.Hex(),
		"diamondProxy": diamondProxy.Hex(),
	}).Info("Fetched contract addresses from the main node")
	return nil
}

// runPreconditions validates configuration against the live chain before
// any component registers. A misconfigured node must not start replicating
// against the wrong network.
func (n *FollowerNode) runPreconditions() error {
	deployedMode, err := n.l1Client.CommitmentMode(n.ctx, n.cfg.Remote.DiamondProxyAddr)
	if err != nil {
		return errors.Wrap(err, "could not read the deployed commitment mode")
	}
	if deployedMode != n.cfg.Optional.CommitmentMode {
		return errors.Errorf(
			"configured commitment mode %q does not match the deployed contract mode %q",
			n.cfg.Optional.CommitmentMode, deployedMode,
		)
	}

	remoteL2, err := n.mainClient.RemoteChainID(n.ctx)
	if err != nil {
		return errors.Wrap(err, "could not read the main node chain id")
	}
	if remoteL2 != n.cfg.Required.L2ChainID {
		return errors.Errorf("main node reports chain id %d, configured %d", remoteL2, n.cfg.Required.L2ChainID)
	}

	remoteL1, err := n.l1Client.RemoteChainID(n.ctx)
	if err != nil {
		return errors.Wrap(err, "could not read the L1 chain id")
	}
	if remoteL1 != n.cfg.Required.L1ChainID {
		return errors.Errorf("L1 endpoint reports chain id %d, configured %d", remoteL1, n.cfg.Required.L1ChainID)
	}
	return nil
}

func (n *FollowerNode) registerComponent(component Component) error {
	switch component {
	case ComponentCore:
		return n.registerCore()
	case ComponentTreeBuilder:
		return n.registerTreeBuilder()
	case ComponentTreeAPI:
		// Folded into the tree builder, contributes no services.
		return nil
	case ComponentTreeFetcher:
		return n.registerTreeFetcher()
	case ComponentHTTPAPI:
		return n.registerHTTPAPI()
	case ComponentWSAPI:
		return n.registerWSAPI()
	}
	return errors.Errorf("unknown component %s", component)
}

func (n *FollowerNode) registerCore() error {
	if err := n.registerDatabaseMetrics(); err != nil {
		return err
	}
	if err := n.registerReplicationPipeline(); err != nil {
		return err
	}
	if err := n.registerConsensus(); err != nil {
		return err
	}
	if n.cfg.Optional.PruningEnabled {
		if err := n.registerPruner(); err != nil {
			return err
		}
	} else {
		log.Info("Pruning is disabled, historical state is kept forever")
	}
	if err := n.registerConsistencyChecker(); err != nil {
		return err
	}
	if err := n.registerCommitmentGenerator(); err != nil {
		return err
	}
	return n.registerBatchStatusUpdater()
}

func (n *FollowerNode) registerHealthCheck() error {
	svc := healthcheck.NewService(&healthcheck.Config{
		Port:          n.cfg.Required.HealthCheckPort,
		SlowTimeLimit: n.cfg.Optional.HealthCheckSlowTimeLimit,
		HardTimeLimit: n.cfg.Optional.HealthCheckHardTimeLimit,
	}, n.services)
	return n.services.RegisterService(svc)
}

func (n *FollowerNode) registerPrometheusService() error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Monitoring.Host, n.cfg.Monitoring.Port)
	hook := prometheus.NewLogrusCollector()
	logrus.AddHook(hook)
	return n.services.RegisterService(prometheus.NewService(addr))
}

func (n *FollowerNode) registerDatabaseMetrics() error {
	return n.services.RegisterService(db.NewMetricsService(n.ctx, n.pools))
}

// registerReplicationPipeline registers the four pipeline stages strictly in
// this order because each stage consumes the previous stage's output.
func (n *FollowerNode) registerReplicationPipeline() error {
	persistenceSvc := persistence.NewService(n.ctx, &persistence.Config{
		BridgeAddr:                 n.cfg.Remote.BridgeAddr,
		QueueCapacity:              n.cfg.Optional.SealQueueCapacity,
		PreInsertTxs:               true,
		ProtectiveReadsPersistence: n.cfg.Optional.ProtectiveReadsPersistence,
		Pools:                      n.pools,
		OnFatal:                    n.onFatal,
	})
	if err := n.services.RegisterService(persistenceSvc); err != nil {
		return err
	}

	feedSvc := feed.NewService(n.ctx, &feed.Config{
		ChainID:     n.cfg.Required.L2ChainID,
		Client:      n.mainClient,
		Persistence: persistenceSvc,
	})
	if err := n.services.RegisterService(feedSvc); err != nil {
		return err
	}

	executorSvc := executor.NewService(n.ctx, &executor.Config{
		SaveCallTraces: n.cfg.DebugNamespaceEnabled(),
		// A follower replays batches the main node already sealed and
		// must tolerate ones produced while compression was optional
		// upstream.
		OptionalBytecodeCompression: true,
		Feed:                        feedSvc,
		Persistence:                 persistenceSvc,
		OnFatal:                     n.onFatal,
	})
	if err := n.services.RegisterService(executorSvc); err != nil {
		return err
	}

	driverSvc, err := driver.NewService(n.ctx, &driver.Config{
		CachePath:          n.cfg.Required.StateCachePath,
		BlockCacheCapacity: n.cfg.Experimental.StateCacheBlockCapacity,
		MaxOpenFiles:       n.cfg.Experimental.StateCacheMaxOpenFiles,
		Persistence:        persistenceSvc,
	})
	if err != nil {
		return errors.Wrap(err, "could not build the replication driver")
	}
	return n.services.RegisterService(driverSvc)
}

func (n *FollowerNode) registerConsensus() error {
	// Secrets are read at assembly time: a node without key material must
	// fail the build, not a running process.
	secrets, err := config.ReadConsensusSecrets(n.cfg.Consensus.SecretsPath)
	if err != nil {
		return err
	}

	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}

	svc, err := consensus.NewService(n.ctx, &consensus.Config{
		Mode:       consensus.ModeFollower,
		PublicAddr: n.cfg.Consensus.PublicAddr,
		Secrets:    secrets,
		Driver:     driverSvc,
	})
	if err != nil {
		return err
	}
	return n.services.RegisterService(svc)
}

func (n *FollowerNode) registerPruner() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	return n.services.RegisterService(pruner.NewService(n.ctx, &pruner.Config{
		RemovalDelay:  n.cfg.Optional.PruningRemovalDelay,
		ChunkSize:     n.cfg.Optional.PruningChunkSize,
		DataRetention: n.cfg.Optional.PruningDataRetention,
		Pools:         n.pools,
		Driver:        driverSvc,
	}))
}

func (n *FollowerNode) registerConsistencyChecker() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	return n.services.RegisterService(checker.NewService(n.ctx, &checker.Config{
		DiamondProxyAddr: n.cfg.Remote.DiamondProxyAddr,
		CommitmentMode:   n.cfg.Optional.CommitmentMode,
		L1Client:         n.l1Client,
		Driver:           driverSvc,
		OnFatal:          n.onFatal,
	}))
}

func (n *FollowerNode) registerCommitmentGenerator() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	return n.services.RegisterService(commitment.NewService(n.ctx, &commitment.Config{
		CommitmentMode: n.cfg.Optional.CommitmentMode,
		MaxParallelism: n.cfg.Experimental.CommitmentGeneratorParallelism,
		Driver:         driverSvc,
	}))
}

func (n *FollowerNode) registerBatchStatusUpdater() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	return n.services.RegisterService(batchstatus.NewService(n.ctx, &batchstatus.Config{
		Client: n.mainClient,
		Pools:  n.pools,
		Driver: driverSvc,
	}))
}

func (n *FollowerNode) registerTreeBuilder() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	serveAPI := false
	for _, c := range n.components {
		if c == ComponentTreeAPI {
			serveAPI = true
		}
	}
	return n.services.RegisterService(merkle.NewService(n.ctx, &merkle.Config{
		Pools:    n.pools,
		Driver:   driverSvc,
		ServeAPI: serveAPI,
	}))
}

func (n *FollowerNode) registerTreeFetcher() error {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return err
	}
	return n.services.RegisterService(treefetcher.NewService(n.ctx, &treefetcher.Config{
		DiamondProxyAddr: n.cfg.Remote.DiamondProxyAddr,
		Client:           n.mainClient,
		Pools:            n.pools,
		Driver:           driverSvc,
	}))
}

// apiBackend bundles resources for the API servers. They register last, so
// every resource they read already exists.
func (n *FollowerNode) apiBackend() (*api.Backend, error) {
	var driverSvc *driver.Service
	if err := n.services.FetchService(&driverSvc); err != nil {
		return nil, err
	}
	backend := &api.Backend{
		Pools:  n.pools,
		Driver: driverSvc,
		Client: n.mainClient,
	}
	var treeSvc *merkle.Service
	if err := n.services.FetchService(&treeSvc); err == nil && treeSvc.APIEnabled() {
		backend.Tree = treeSvc
	}
	return backend, nil
}

func (n *FollowerNode) registerHTTPAPI() error {
	backend, err := n.apiBackend()
	if err != nil {
		return err
	}
	svc, err := api.NewHTTPService(&api.HTTPConfig{
		Port:       n.cfg.Optional.HTTPPort,
		Namespaces: n.cfg.Optional.APINamespaces,
		Backend:    backend,
	})
	if err != nil {
		return err
	}
	return n.services.RegisterService(svc)
}

func (n *FollowerNode) registerWSAPI() error {
	backend, err := n.apiBackend()
	if err != nil {
		return err
	}
	svc, err := api.NewWSService(&api.WSConfig{
		Port:    n.cfg.Optional.WSPort,
		Backend: backend,
	})
	if err != nil {
		return err
	}
	return n.services.RegisterService(svc)
}

// layerPlan returns the service sequence a component set expands to under
// the given configuration. Registration follows this plan exactly; two
// builds with identical inputs produce identical sequences.
func layerPlan(components []Component, cfg *config.Config) []string {
	plan := []string{"healthcheck"}
	if cfg.Monitoring != nil {
		plan = append(plan, "prometheus")
	}
	for _, component := range components {
		switch component {
		case ComponentCore:
			plan = append(plan, "db_metrics", "persistence", "feed", "executor", "driver", "consensus")
			if cfg.Optional.PruningEnabled {
				plan = append(plan, "pruner")
			}
			plan = append(plan, "checker", "commitment", "batchstatus")
		case ComponentTreeBuilder:
			plan = append(plan, "merkle")
		case ComponentTreeAPI:
			// Folded into the tree builder.
		case ComponentTreeFetcher:
			plan = append(plan, "treefetcher")
		case ComponentHTTPAPI:
			plan = append(plan, "http_api")
		case ComponentWSAPI:
			plan = append(plan, "ws_api")
		}
	}
	return plan
}
