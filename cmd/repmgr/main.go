package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/dd0wney/cluso-repmgr/pkg/cluster"
	"github.com/dd0wney/cluso-repmgr/pkg/config"
	"github.com/dd0wney/cluso-repmgr/pkg/genstore"
	"github.com/dd0wney/cluso-repmgr/pkg/health"
	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/metrics"
	"github.com/dd0wney/cluso-repmgr/pkg/replication"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

func main() {
	configPath := flag.String("config", "repmgr.yaml", "Site configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logging.DefaultLogger().Error("repmgr exited with error", logging.Error(err))
		os.Exit(1)
	}
}

func run(configPath string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.Level())
	logging.SetDefaultLogger(logger)
	registry := metrics.DefaultRegistry()

	logger.Info("repmgr starting",
		logging.Site(cfg.SiteID),
		logging.Policy(cfg.InitPolicy),
		logging.Int("peers", len(cfg.Sites)))

	store, err := genstore.Open(cfg.GenerationFile)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	membership, err := cfg.Membership()
	if err != nil {
		return fmt.Errorf("build membership: %w", err)
	}

	factory := replication.NewNNGSocketFactory()
	transport, err := replication.NewManager(cfg.SiteID, cfg.PeerAddrs(), cfg.ReplicationConfig(),
		replication.WithSocketFactory(factory),
		replication.WithLogger(logger),
		replication.WithMetrics(registry))
	if err != nil {
		return err
	}

	groupConfig, err := cfg.GroupConfig()
	if err != nil {
		return err
	}

	// Votes are answered with the group's view of the master; group is set
	// below, before the vote server starts.
	var group *repmgr.Group
	elector := cluster.NewElector(cfg.ClusterConfig(), membership,
		cluster.NewNNGVoteTransport(cfg.Replication.Scheme, factory),
		cluster.WithMasterSource(func() int { return group.MasterID() }),
		cluster.WithElectorLogger(logger),
		cluster.WithElectorMetrics(registry))

	group, err = repmgr.NewGroup(groupConfig, repmgr.Collaborators{
		Elector:     elector,
		Sites:       membership,
		Transport:   transport,
		Addresses:   replication.NewAddressProvider(cfg.Replication.Host, cfg.Replication.Port),
		Generations: store,
	}, repmgr.WithLogger(logger), repmgr.WithMetrics(registry))
	if err != nil {
		return err
	}
	group.OnEvent(func(ev repmgr.Event) {
		logger.Debug("group event", logging.String("event", ev.Type.String()), logging.Master(ev.MasterID))
	})

	transport.OnNewMaster(group.SetMaster)
	transport.OnMasterLost(func() {
		if err := group.MasterLost(); err != nil && !errors.Is(err, repmgr.ErrShuttingDown) {
			logger.Error("election after master loss failed to start", logging.Error(err))
		}
	})

	voteServer := cluster.NewVoteServer(elector.HandleVoteRequest, factory, logger)
	if err := voteServer.Start(cfg.VoteListenURL()); err != nil {
		return err
	}

	httpServer := startHTTP(cfg, group, store, transport, registry, logger)

	if err := startGroup(cfg, group); err != nil {
		return multierr.Combine(err, group.Shutdown(), voteServer.Stop(), transport.Stop())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", logging.String("signal", sig.String()))

	err = multierr.Combine(
		group.Shutdown(),
		voteServer.Stop(),
		transport.Stop(),
	)
	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, httpServer.Shutdown(ctx))
	}
	return err
}

// startGroup takes the first step the configuration asks for
func startGroup(cfg *config.Config, group *repmgr.Group) error {
	if cfg.BootstrapMaster {
		return group.BecomeMaster()
	}

	groupConfig, err := cfg.GroupConfig()
	if err != nil {
		return err
	}
	if groupConfig.InitPolicy == repmgr.PolicyClient {
		return group.InitElection(repmgr.OpRepStart)
	}
	return group.InitElection(repmgr.OpElection)
}

func startHTTP(cfg *config.Config, group *repmgr.Group, store *genstore.BoltStore,
	transport *replication.Manager, registry *metrics.Registry, logger logging.Logger) *http.Server {
	if cfg.HTTP.Addr == "" {
		return nil
	}

	checker := health.NewHealthChecker()
	coordinator := health.CoordinatorCheck(func() health.CoordinatorState {
		return health.CoordinatorState{
			SiteID:   group.SiteID(),
			MasterID: group.MasterID(),
			Running:  group.Running(),
		}
	})
	checker.RegisterCheck("coordinator", coordinator)
	checker.RegisterReadinessCheck("coordinator", coordinator)
	checker.RegisterCheck("generation", health.GenerationCheck(store.Current))
	checker.RegisterLivenessCheck("generation", health.GenerationCheck(store.Current))
	checker.RegisterCheck("replication", health.RoleCheck(func() (string, bool) {
		role, active := transport.Role()
		return role.String(), active
	}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", checker.HTTPHandler())
	mux.HandleFunc("/health/ready", checker.ReadinessHandler())
	mux.HandleFunc("/health/live", checker.LivenessHandler())

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server starting", logging.Addr(cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", logging.Error(err))
		}
	}()
	return server
}
