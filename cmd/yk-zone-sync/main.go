package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/config"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/controller"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns/providers"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/state"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/sync"
)

var (
	scheme  = runtime.NewScheme()
	Version = "dev"
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(gatewayv1.Install(scheme))
}

func main() {
	var enableLeaderElection bool
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election. Required when running more than one replica; "+
			"two uncoordinated instances writing the same zone would race.")

	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if err := run(enableLeaderElection); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(enableLeaderElection bool) error {
	log := ctrl.Log.WithName("setup")

	log.Info("starting yk-zone-sync", "version", Version)

	syncCfg, err := config.LoadSyncConfig()
	if err != nil {
		return fmt.Errorf("unable to load sync config: %w", err)
	}
	log.Info("loaded sync config", "zone", syncCfg.Zone, "owner", syncCfg.OwnerID)

	providerCfg, err := config.LoadProviderConfig()
	if err != nil {
		return fmt.Errorf("unable to load provider config: %w", err)
	}
	log.Info("loaded provider config", "provider", providerCfg.Provider)

	dnsProvider, err := dns.NewProvider(providerCfg.Provider, ctrl.Log.WithName("dns-"+providerCfg.Provider), providerCfg.Settings)
	if err != nil {
		return fmt.Errorf("unable to create DNS provider: %w", err)
	}

	// The domain map is optional; without it HTTPRoute hostnames need a
	// target annotation.
	var domainMap *config.DomainMap
	domainMapPath := os.Getenv("DOMAIN_MAP_PATH")
	if domainMapPath == "" {
		domainMapPath = "configs/domain-map.yaml"
	}
	domainMap, err = config.LoadDomainMap(domainMapPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to load domain map: %w", err)
		}
		log.Info("no domain map found, continuing without", "path", domainMapPath)
		domainMap = nil
	} else {
		log.Info("loaded domain map", "path", domainMapPath)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: ":9090"},
		HealthProbeBindAddress: ":8081",
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "zone-sync.dns.yk",
	})
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}

	desired := state.NewBuilder(syncCfg.Zone, syncCfg.OwnerID, ctrl.Log.WithName("desired-state"))
	cache := sync.NewCache(dnsProvider, syncCfg.Zone, syncCfg.OwnerID, ctrl.Log.WithName("actual-state"))
	loop := &sync.Loop{
		Desired: desired,
		Cache:   cache,
		Executor: &sync.Executor{
			Provider:      dnsProvider,
			Zone:          syncCfg.Zone,
			MaxConcurrent: syncCfg.MaxConcurrent,
			MaxAttempts:   syncCfg.RetryAttempts,
			Log:           ctrl.Log.WithName("executor"),
		},
		Interval:         syncCfg.Interval,
		Debounce:         syncCfg.Debounce,
		Cooldown:         syncCfg.BackoffCooldown,
		FailureThreshold: syncCfg.FailureThreshold,
		Log:              ctrl.Log.WithName("reconcile-loop"),
	}
	if err := mgr.Add(loop); err != nil {
		return fmt.Errorf("unable to add reconcile loop: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", loop.ReadyCheck); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	ingressReconciler := &controller.IngressReconciler{
		Client:  mgr.GetClient(),
		Log:     ctrl.Log.WithName("ingress-controller"),
		Desired: desired,
	}
	if err := ingressReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up Ingress controller: %w", err)
	}

	serviceReconciler := &controller.ServiceReconciler{
		Client:  mgr.GetClient(),
		Log:     ctrl.Log.WithName("service-controller"),
		Desired: desired,
	}
	if err := serviceReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up Service controller: %w", err)
	}

	routeReconciler := &controller.HTTPRouteReconciler{
		Client:    mgr.GetClient(),
		Log:       ctrl.Log.WithName("httproute-controller"),
		DomainMap: domainMap,
		Desired:   desired,
	}
	if err := routeReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up HTTPRoute controller: %w", err)
	}

	log.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("manager exited with error: %w", err)
	}

	return nil
}
