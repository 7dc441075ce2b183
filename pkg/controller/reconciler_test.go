package controller

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
	"github.com/cloudpilot-ai/clustersync/pkg/clusteraccess"
	"github.com/cloudpilot-ai/clustersync/pkg/namespaces"
	"github.com/cloudpilot-ai/clustersync/pkg/syncer"
)

type recordingSyncer struct {
	calls int
	err   error
}

func (s *recordingSyncer) SyncAll(context.Context, *syncv1.SyncConfigSpec) error {
	s.calls++
	return s.err
}

var _ = Describe("SyncConfig Reconciler", func() {
	const (
		name      = "sync-sample"
		namespace = "default"
	)

	var (
		ctx    context.Context
		req    reconcile.Request
		source *kubefake.Clientset
		target *kubefake.Clientset
	)

	newHostClient := func(objs ...client.Object) client.Client {
		runtimeScheme, err := newScheme()
		Expect(err).NotTo(HaveOccurred())
		return fake.NewClientBuilder().WithScheme(runtimeScheme).WithObjects(objs...).Build()
	}

	newSyncConfig := func(spec syncv1.SyncConfigSpec) *syncv1.SyncConfig {
		return &syncv1.SyncConfig{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
			Spec:       spec,
		}
	}

	newReconciler := func(hostClient client.Client) *SyncConfigReconciler {
		resourceSyncer := syncer.NewSyncer(
			clusteraccess.Static{"a": source, "b": target},
			namespaces.NewGuarantor(60*time.Second),
		)
		return NewSyncConfigReconciler(hostClient, resourceSyncer)
	}

	BeforeEach(func() {
		ctx = context.Background()
		req = reconcile.Request{NamespacedName: types.NamespacedName{Name: name, Namespace: namespace}}
		source = kubefake.NewSimpleClientset(&corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: "cfg1", Namespace: "ns1", ResourceVersion: "3"},
			Data:       map[string]string{"k": "v"},
		})
		target = kubefake.NewSimpleClientset()
	})

	Context("When a SyncConfig is created", func() {
		It("should copy the resources to the target cluster", func() {
			By("Reconciling a SyncConfig with the create policy")
			syncConfig := newSyncConfig(syncv1.SyncConfigSpec{
				SourceCluster:     "a",
				TargetClusters:    []string{"b"},
				NamespaceHandling: syncv1.NamespaceHandlingCreate,
				Resources:         []syncv1.ResourceSpec{{Kind: "ConfigMap", Name: "cfg1", Namespace: "ns1"}},
			})
			result, err := newReconciler(newHostClient(syncConfig)).Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(BeZero())

			By("Verifying the ConfigMap exists on the target cluster")
			cm, err := target.CoreV1().ConfigMaps("ns1").Get(ctx, "cfg1", metav1.GetOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cm.Data).To(Equal(map[string]string{"k": "v"}))
		})

		It("should return normally when the resource already exists on the target", func() {
			target = kubefake.NewSimpleClientset(
				&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "ns1"}},
				&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "cfg1", Namespace: "ns1"}},
			)
			syncConfig := newSyncConfig(syncv1.SyncConfigSpec{
				SourceCluster:  "a",
				TargetClusters: []string{"b"},
				Resources:      []syncv1.ResourceSpec{{Kind: "ConfigMap", Name: "cfg1", Namespace: "ns1"}},
			})

			result, err := newReconciler(newHostClient(syncConfig)).Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconcile.Result{}))
		})
	})

	Context("When the target namespace is missing under the fail policy", func() {
		It("should requeue after the retry delay without creating anything", func() {
			syncConfig := newSyncConfig(syncv1.SyncConfigSpec{
				SourceCluster:  "a",
				TargetClusters: []string{"b"},
				Resources:      []syncv1.ResourceSpec{{Kind: "ConfigMap", Name: "cfg1", Namespace: "ns1"}},
			})

			result, err := newReconciler(newHostClient(syncConfig)).Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.RequeueAfter).To(Equal(60 * time.Second))

			for _, action := range target.Actions() {
				Expect(action.GetVerb()).NotTo(Equal("create"))
			}
		})
	})

	Context("When the SyncConfig cannot be acted on", func() {
		It("should ignore a deleted SyncConfig", func() {
			recorder := &recordingSyncer{}
			result, err := NewSyncConfigReconciler(newHostClient(), recorder).Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(reconcile.Result{}))
			Expect(recorder.calls).To(BeZero())
		})

		It("should not retry an invalid spec", func() {
			recorder := &recordingSyncer{}
			syncConfig := newSyncConfig(syncv1.SyncConfigSpec{TargetClusters: []string{"b"}})

			_, err := NewSyncConfigReconciler(newHostClient(syncConfig), recorder).Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeTrue())
			Expect(recorder.calls).To(BeZero())
		})

		It("should return credential errors to the default retry", func() {
			syncConfig := newSyncConfig(syncv1.SyncConfigSpec{
				SourceCluster:  "unknown",
				TargetClusters: []string{"b"},
				Resources:      []syncv1.ResourceSpec{{Kind: "ConfigMap", Name: "cfg1", Namespace: "ns1"}},
			})

			result, err := newReconciler(newHostClient(syncConfig)).Reconcile(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, reconcile.TerminalError(nil))).To(BeFalse())
			Expect(result.RequeueAfter).To(BeZero())
		})
	})

	Context("When filtering SyncConfig events", func() {
		It("should only admit creates and spec updates", func() {
			p := createOrUpdatePredicate()
			oldObj := newSyncConfig(syncv1.SyncConfigSpec{SourceCluster: "a"})
			oldObj.Generation = 1
			sameGeneration := oldObj.DeepCopy()
			sameGeneration.Labels = map[string]string{"touched": "true"}
			newGeneration := oldObj.DeepCopy()
			newGeneration.Generation = 2

			Expect(p.Create(event.CreateEvent{Object: oldObj})).To(BeTrue())
			Expect(p.Update(event.UpdateEvent{ObjectOld: oldObj, ObjectNew: newGeneration})).To(BeTrue())
			Expect(p.Update(event.UpdateEvent{ObjectOld: oldObj, ObjectNew: sameGeneration})).To(BeFalse())
			Expect(p.Delete(event.DeleteEvent{Object: oldObj})).To(BeFalse())
			Expect(p.Generic(event.GenericEvent{Object: oldObj})).To(BeFalse())
		})
	})
})
