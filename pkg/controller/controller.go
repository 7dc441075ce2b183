// Package controller wires the SyncConfig reconciler into a controller-runtime manager.
// SyncConfig create and update events trigger a full sync pass; a missing target
// namespace under the fail policy requeues the SyncConfig after the configured delay.
package controller

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
	"github.com/cloudpilot-ai/clustersync/pkg/clusteraccess"
	"github.com/cloudpilot-ai/clustersync/pkg/config"
	"github.com/cloudpilot-ai/clustersync/pkg/namespaces"
	"github.com/cloudpilot-ai/clustersync/pkg/syncer"
)

// Controller is the main clustersync controller
type Controller struct {
	cfg     *config.Config
	manager ctrl.Manager
}

// newScheme creates and registers all required schemes
func newScheme() (*runtime.Scheme, error) {
	runtimeScheme := runtime.NewScheme()

	// Add Kubernetes core types
	if err := scheme.AddToScheme(runtimeScheme); err != nil {
		return nil, fmt.Errorf("failed to add core scheme: %w", err)
	}

	// Add our custom types (SyncConfig CRD)
	if err := syncv1.AddToScheme(runtimeScheme); err != nil {
		return nil, fmt.Errorf("failed to add syncconfig scheme: %w", err)
	}

	return runtimeScheme, nil
}

// NewController creates a new Controller with controller-runtime Manager
func NewController(cfg *config.Config, restConfig *rest.Config) (*Controller, error) {
	runtimeScheme, err := newScheme()
	if err != nil {
		return nil, err
	}

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: runtimeScheme,
		Metrics: metricsserver.Options{
			BindAddress: cfg.MetricsBindAddress,
		},
		HealthProbeBindAddress: cfg.HealthProbeBindAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create manager: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return nil, fmt.Errorf("failed to add health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return nil, fmt.Errorf("failed to add ready check: %w", err)
	}

	resourceSyncer := syncer.NewSyncer(
		clusteraccess.NewKubeconfigAccessor(cfg.KubeconfigDir),
		namespaces.NewGuarantor(cfg.RetryDelay),
	)

	reconciler := NewSyncConfigReconciler(mgr.GetClient(), resourceSyncer)
	if err := reconciler.SetupWithManager(mgr, cfg.MaxConcurrentReconciles); err != nil {
		return nil, fmt.Errorf("failed to set up SyncConfig reconciler: %w", err)
	}

	return &Controller{
		cfg:     cfg,
		manager: mgr,
	}, nil
}

// Run starts the manager and blocks until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	klog.Infof("Starting clustersync controller, kubeconfig dir: %s", c.cfg.KubeconfigDir)

	if err := c.manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to run manager: %w", err)
	}

	klog.Info("Shutting down clustersync controller")
	return nil
}
