// Package syncer replicates ConfigMaps and Secrets from a source cluster to target clusters.
// Every ResourceSpec of a SyncConfig is fetched from the source cluster, stripped of server
// assigned identity and created on each target cluster in order. Failures on one target
// are logged and do not stop the others, except a missing namespace under the fail policy
// which aborts the pass so the whole SyncConfig can be retried later.
package syncer

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apiserrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	"sigs.k8s.io/controller-runtime/pkg/client"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
	"github.com/cloudpilot-ai/clustersync/pkg/clusteraccess"
	"github.com/cloudpilot-ai/clustersync/pkg/fetcher"
	"github.com/cloudpilot-ai/clustersync/pkg/metrics"
	"github.com/cloudpilot-ai/clustersync/pkg/namespaces"
	"github.com/cloudpilot-ai/clustersync/pkg/sanitizer"
)

// Syncer copies resources between clusters
type Syncer struct {
	accessor  clusteraccess.Accessor
	guarantor *namespaces.Guarantor
}

// NewSyncer creates a new Syncer
func NewSyncer(accessor clusteraccess.Accessor, guarantor *namespaces.Guarantor) *Syncer {
	return &Syncer{
		accessor:  accessor,
		guarantor: guarantor,
	}
}

// SyncAll runs Sync for every resource of spec, in order.
// It stops at the first error; a namespaces.RetryableError means the whole spec should be retried.
func (s *Syncer) SyncAll(ctx context.Context, spec *syncv1.SyncConfigSpec) error {
	policy := spec.Policy()
	for i := range spec.Resources {
		rs := spec.Resources[i]
		if err := s.Sync(ctx, spec.SourceCluster, rs.ResourceKind(), spec.TargetClusters, policy, rs); err != nil {
			return fmt.Errorf("failed to sync resources[%d] (%s): %w", i, rs.Kind, err)
		}
	}
	return nil
}

// Sync fetches the resources selected by rs from sourceCluster and creates them on every target cluster.
func (s *Syncer) Sync(
	ctx context.Context,
	sourceCluster string,
	kind syncv1.ResourceKind,
	targetClusters []string,
	policy syncv1.NamespaceHandling,
	rs syncv1.ResourceSpec,
) error {
	sourceClient, err := s.accessor.ClientFor(sourceCluster)
	if err != nil {
		return fmt.Errorf("failed to get client for source cluster %s: %w", sourceCluster, err)
	}

	objects := fetcher.Fetch(ctx, sourceClient, kind, rs.Name, rs.Namespace)
	metrics.RecordFetched(kind, sourceCluster, len(objects))
	if len(objects) == 0 {
		klog.Infof("No %s matching name=%q namespace=%q found in source cluster %s. Skipping...",
			rs.Kind, rs.Name, rs.Namespace, sourceCluster)
		return nil
	}

	for _, obj := range objects {
		sanitized := sanitizer.Sanitize(obj)

		targetNamespace := rs.Namespace
		if targetNamespace == "" {
			targetNamespace = obj.GetNamespace()
		}

		for _, cluster := range targetClusters {
			if err := s.syncToCluster(ctx, kind, sanitized, cluster, targetNamespace, policy); err != nil {
				return err
			}
		}
	}

	return nil
}

// syncToCluster creates obj in namespace on cluster.
// Create failures are logged and swallowed; namespace and client errors are returned.
func (s *Syncer) syncToCluster(
	ctx context.Context,
	kind syncv1.ResourceKind,
	obj client.Object,
	cluster, namespace string,
	policy syncv1.NamespaceHandling,
) error {
	targetClient, err := s.accessor.ClientFor(cluster)
	if err != nil {
		return fmt.Errorf("failed to get client for target cluster %s: %w", cluster, err)
	}

	if err := s.guarantor.EnsureNamespace(ctx, targetClient, namespace, policy); err != nil {
		if _, ok := namespaces.IsRetryable(err); ok {
			metrics.RecordSync(kind, cluster, metrics.ResultNamespaceRetry)
		}
		return fmt.Errorf("target cluster %s: %w", cluster, err)
	}

	desired := obj.DeepCopyObject().(client.Object)
	desired.SetNamespace(namespace)

	if err := createObject(ctx, targetClient, desired); err != nil {
		if apiserrors.IsAlreadyExists(err) {
			metrics.RecordSync(kind, cluster, metrics.ResultConflict)
			klog.Warningf("Conflict: %s %s/%s already exists in cluster %s, skipping",
				kind, namespace, desired.GetName(), cluster)
			return nil
		}
		metrics.RecordSync(kind, cluster, metrics.ResultFailed)
		klog.Errorf("Failed to synchronize %s %s/%s to cluster %s: %v",
			kind, namespace, desired.GetName(), cluster, err)
		return nil
	}

	metrics.RecordSync(kind, cluster, metrics.ResultCreated)
	klog.Infof("Synchronized %s %s/%s to cluster %s", kind, namespace, desired.GetName(), cluster)
	return nil
}

// createObject issues the typed create call matching obj
func createObject(ctx context.Context, kubeClient kubernetes.Interface, obj client.Object) error {
	var err error
	switch o := obj.(type) {
	case *corev1.ConfigMap:
		_, err = kubeClient.CoreV1().ConfigMaps(o.Namespace).Create(ctx, o, metav1.CreateOptions{})
	case *corev1.Secret:
		_, err = kubeClient.CoreV1().Secrets(o.Namespace).Create(ctx, o, metav1.CreateOptions{})
	default:
		err = fmt.Errorf("unsupported object type %T", obj)
	}
	return err
}
