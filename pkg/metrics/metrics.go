// Package metrics exposes counters for sync outcomes on the controller-runtime metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
)

// Result is the outcome of syncing one resource to one target cluster
type Result string

const (
	ResultCreated        Result = "created"
	ResultConflict       Result = "conflict"
	ResultFailed         Result = "failed"
	ResultNamespaceRetry Result = "namespace_retry"
)

var (
	// ResourceSyncTotal counts per-target sync outcomes
	ResourceSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clustersync",
			Name:      "resource_sync_total",
			Help:      "Number of resource sync attempts per kind, target cluster and result.",
		},
		[]string{"kind", "cluster", "result"},
	)

	// FetchedResourcesTotal counts resources read from source clusters
	FetchedResourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clustersync",
			Name:      "fetched_resources_total",
			Help:      "Number of resources fetched from source clusters per kind and source cluster.",
		},
		[]string{"kind", "cluster"},
	)
)

func init() {
	ctrlmetrics.Registry.MustRegister(ResourceSyncTotal, FetchedResourcesTotal)
}

// RecordSync increments the outcome counter for kind on cluster
func RecordSync(kind syncv1.ResourceKind, cluster string, result Result) {
	ResourceSyncTotal.WithLabelValues(string(kind), cluster, string(result)).Inc()
}

// RecordFetched adds count fetched resources of kind from cluster
func RecordFetched(kind syncv1.ResourceKind, cluster string, count int) {
	FetchedResourcesTotal.WithLabelValues(string(kind), cluster).Add(float64(count))
}
