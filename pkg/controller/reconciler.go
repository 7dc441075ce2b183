package controller

import (
	"context"

	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	crcontroller "sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
	"github.com/cloudpilot-ai/clustersync/pkg/namespaces"
)

// SpecSyncer runs one sync pass for a SyncConfig spec
type SpecSyncer interface {
	SyncAll(ctx context.Context, spec *syncv1.SyncConfigSpec) error
}

// SyncConfigReconciler runs a sync pass for every created or updated SyncConfig
type SyncConfigReconciler struct {
	ctrlClient client.Client
	syncer     SpecSyncer
}

// +kubebuilder:rbac:groups=myoperator.example.com,resources=syncconfigs,verbs=get;list;watch

// NewSyncConfigReconciler creates a new SyncConfigReconciler
func NewSyncConfigReconciler(ctrlClient client.Client, syncer SpecSyncer) *SyncConfigReconciler {
	return &SyncConfigReconciler{
		ctrlClient: ctrlClient,
		syncer:     syncer,
	}
}

// Reconcile syncs the resources declared by one SyncConfig
func (r *SyncConfigReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var syncConfig syncv1.SyncConfig
	if err := r.ctrlClient.Get(ctx, req.NamespacedName, &syncConfig); err != nil {
		// Deleted SyncConfigs leave synced resources in place
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if !syncConfig.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	if err := syncConfig.Spec.Validate(); err != nil {
		klog.Errorf("Invalid SyncConfig %s: %v", req.NamespacedName, err)
		return ctrl.Result{}, reconcile.TerminalError(err)
	}

	klog.Infof("Syncing %s %s: %d resources across clusters %v",
		syncv1.Kind, req.NamespacedName, len(syncConfig.Spec.Resources), syncConfig.Spec.ClusterIDs())

	if err := r.syncer.SyncAll(ctx, &syncConfig.Spec); err != nil {
		if retryable, ok := namespaces.IsRetryable(err); ok {
			klog.Warningf("SyncConfig %s will be retried in %s: %v", req.NamespacedName, retryable.Delay, err)
			return ctrl.Result{RequeueAfter: retryable.Delay}, nil
		}
		klog.Errorf("Failed to sync SyncConfig %s: %v", req.NamespacedName, err)
		return ctrl.Result{}, err
	}

	klog.Infof("Finished syncing SyncConfig %s", req.NamespacedName)
	return ctrl.Result{}, nil
}

// createOrUpdatePredicate admits create events and spec updates only
func createOrUpdatePredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(event.CreateEvent) bool { return true },
		UpdateFunc: func(e event.UpdateEvent) bool {
			return predicate.GenerationChangedPredicate{}.Update(e)
		},
		DeleteFunc:  func(event.DeleteEvent) bool { return false },
		GenericFunc: func(event.GenericEvent) bool { return false },
	}
}

// SetupWithManager registers the reconciler for SyncConfig events
func (r *SyncConfigReconciler) SetupWithManager(mgr ctrl.Manager, maxConcurrentReconciles int) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&syncv1.SyncConfig{}, builder.WithPredicates(createOrUpdatePredicate())).
		WithOptions(crcontroller.Options{MaxConcurrentReconciles: maxConcurrentReconciles}).
		Named("syncconfig").
		Complete(r)
}
