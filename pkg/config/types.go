// Package config provides configuration types and constants for the clustersync controller.
// It defines the controller's runtime configuration and the conventions used to
// resolve per-cluster credentials.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the controller runtime configuration
type Config struct {
	// KubeconfigDir is the directory holding one <clusterID>.kubeconfig file per cluster
	KubeconfigDir string
	// RetryDelay is the requeue delay used when a target namespace is missing under the fail policy
	RetryDelay time.Duration
	// MetricsBindAddress is the address the metrics endpoint binds to, "0" disables it
	MetricsBindAddress string
	// HealthProbeBindAddress is the address the health probes bind to, "0" disables them
	HealthProbeBindAddress string
	// MaxConcurrentReconciles bounds how many SyncConfigs are handled at once
	MaxConcurrentReconciles int
}

const (
	// DefaultKubeconfigDir is the conventional directory for cluster credentials
	DefaultKubeconfigDir = "kube"
	// KubeconfigSuffix is appended to a cluster identifier to form its credential file name
	KubeconfigSuffix = ".kubeconfig"
	// DefaultRetryDelay is the fixed backoff before a SyncConfig is retried under the fail policy
	DefaultRetryDelay = 60 * time.Second
	// DefaultMetricsBindAddress is the default metrics endpoint address
	DefaultMetricsBindAddress = ":8080"
	// DefaultHealthProbeBindAddress is the default health probe address
	DefaultHealthProbeBindAddress = ":8081"
	// DefaultMaxConcurrentReconciles handles one SyncConfig at a time
	DefaultMaxConcurrentReconciles = 1
)

// Default returns a Config populated with the default values
func Default() *Config {
	return &Config{
		KubeconfigDir:           DefaultKubeconfigDir,
		RetryDelay:              DefaultRetryDelay,
		MetricsBindAddress:      DefaultMetricsBindAddress,
		HealthProbeBindAddress:  DefaultHealthProbeBindAddress,
		MaxConcurrentReconciles: DefaultMaxConcurrentReconciles,
	}
}

// Validate reports configuration values the controller cannot run with
func (c *Config) Validate() error {
	if c.KubeconfigDir == "" {
		return errors.New("kubeconfig directory must not be empty")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %s", c.RetryDelay)
	}
	if c.MaxConcurrentReconciles < 1 {
		return fmt.Errorf("max concurrent reconciles must be at least 1, got %d", c.MaxConcurrentReconciles)
	}
	return nil
}
