package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/client-go/pkg/version"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cloudpilot-ai/clustersync/pkg/config"
	"github.com/cloudpilot-ai/clustersync/pkg/controller"
)

var (
	kubeconfig string
	cfg        = config.Default()

	rootCmd = &cobra.Command{
		Use:   "clustersync",
		Short: "Kubernetes ConfigMap and Secret replication controller",
		Long: `clustersync is a Kubernetes controller that copies ConfigMaps and Secrets from a source cluster
to one or more target clusters. It watches SyncConfig resources and, on every create or update,
reads the declared resources from the source cluster and creates them on each target cluster.
Cluster credentials are read from <kubeconfig-dir>/<cluster>.kubeconfig.`,
		RunE: runController,
	}
)

func main() {
	klog.InitFlags(nil)
	rootCmd.Flags().AddGoFlagSet(flag.CommandLine)

	rootCmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig file of the cluster holding SyncConfigs (for local development)")
	rootCmd.Flags().StringVar(&cfg.KubeconfigDir, "kubeconfig-dir", config.DefaultKubeconfigDir, "Directory containing one <cluster>.kubeconfig file per source or target cluster")
	rootCmd.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", config.DefaultRetryDelay, "Delay before retrying a SyncConfig whose target namespace is missing under the 'fail' policy")
	rootCmd.Flags().StringVar(&cfg.MetricsBindAddress, "metrics-bind-address", config.DefaultMetricsBindAddress, "Address the metrics endpoint binds to, '0' disables it")
	rootCmd.Flags().StringVar(&cfg.HealthProbeBindAddress, "health-probe-bind-address", config.DefaultHealthProbeBindAddress, "Address the health probe endpoint binds to, '0' disables it")
	rootCmd.Flags().IntVar(&cfg.MaxConcurrentReconciles, "max-concurrent-reconciles", config.DefaultMaxConcurrentReconciles, "Maximum number of SyncConfigs handled concurrently")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runController(cmd *cobra.Command, args []string) error {
	currentVersion := version.Get()
	klog.Infof("Start clustersync, version: %s, commit: %s", currentVersion.GitVersion, currentVersion.GitCommit)

	// Set up controller-runtime logger to use klog
	ctrl.SetLogger(klog.NewKlogr())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	restConfig, err := buildRestConfig(kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to build REST config: %w", err)
	}

	syncController, err := controller.NewController(cfg, restConfig)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		klog.Infof("Received signal %v, shutting down", sig)
		cancel()
	}()

	if err := syncController.Run(ctx); err != nil {
		klog.Errorf("Controller error: %v", err)
		return err
	}

	return nil
}

// buildRestConfig creates a REST config from kubeconfig or in-cluster config
func buildRestConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
	}
	return config, nil
}
