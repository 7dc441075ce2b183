package v1

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:printcolumn:name="Source",type=string,JSONPath=`.spec.sourceCluster`
// +kubebuilder:printcolumn:name="Targets",type=string,JSONPath=`.spec.targetClusters`
// +kubebuilder:printcolumn:name="Namespace Handling",type=string,JSONPath=`.spec.namespaceHandling`,priority=1
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// SyncConfig declares which ConfigMaps and Secrets are copied from a source cluster to target clusters
type SyncConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec SyncConfigSpec `json:"spec"`
}

// SyncConfigSpec defines the desired sync of a SyncConfig
type SyncConfigSpec struct {
	// SourceCluster is the identifier of the cluster resources are read from.
	// Its credentials are resolved from <kubeconfig-dir>/<SourceCluster>.kubeconfig.
	// +required
	SourceCluster string `json:"sourceCluster"`

	// TargetClusters are the identifiers of the clusters resources are copied to, in order.
	// An empty list makes the SyncConfig a no-op.
	// +optional
	TargetClusters []string `json:"targetClusters,omitempty"`

	// NamespaceHandling controls what happens when the target namespace is missing.
	// +optional
	// +kubebuilder:default=fail
	// +kubebuilder:validation:Enum=create;fail
	NamespaceHandling NamespaceHandling `json:"namespaceHandling,omitempty"`

	// Resources are processed in order.
	// +optional
	Resources []ResourceSpec `json:"resources,omitempty"`
}

// ResourceSpec selects resources of one kind in the source cluster.
// When Name is empty every resource of Kind in Namespace is selected; when Namespace is
// also empty the selection is cluster wide and each object keeps its own namespace.
type ResourceSpec struct {
	// Kind is ConfigMap or Secret, matched case-insensitively
	// +required
	Kind string `json:"kind"`

	// +optional
	Name string `json:"name,omitempty"`

	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// NamespaceHandling is the policy applied to a missing target namespace
type NamespaceHandling string

const (
	// NamespaceHandlingCreate creates the missing namespace before syncing
	NamespaceHandlingCreate NamespaceHandling = "create"

	// NamespaceHandlingFail retries the whole SyncConfig later without acting
	NamespaceHandlingFail NamespaceHandling = "fail"
)

// ResourceKind is the normalized kind of a ResourceSpec
type ResourceKind string

const (
	KindConfigMap ResourceKind = "ConfigMap"
	KindSecret    ResourceKind = "Secret"

	// KindUnknown is returned for kinds the controller does not sync
	KindUnknown ResourceKind = ""
)

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// SyncConfigList is a list of SyncConfig resources
type SyncConfigList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata"`

	Items []SyncConfig `json:"items"`
}

// ParseKind maps a ResourceSpec kind to a ResourceKind ignoring case.
// Unrecognized kinds return KindUnknown.
func ParseKind(kind string) ResourceKind {
	switch strings.ToLower(kind) {
	case "configmap":
		return KindConfigMap
	case "secret":
		return KindSecret
	default:
		return KindUnknown
	}
}

// ResourceKind returns the normalized kind of the resource spec
func (rs *ResourceSpec) ResourceKind() ResourceKind {
	return ParseKind(rs.Kind)
}

// Policy returns the namespace handling policy, defaulting to fail when unset
func (s *SyncConfigSpec) Policy() NamespaceHandling {
	if s.NamespaceHandling == "" {
		return NamespaceHandlingFail
	}
	return s.NamespaceHandling
}

// ClusterIDs returns every cluster referenced by the spec, source first, without duplicates.
func (s *SyncConfigSpec) ClusterIDs() []string {
	return lo.Uniq(append([]string{s.SourceCluster}, s.TargetClusters...))
}

// Validate checks the fields the controller cannot act without.
// Unknown resource kinds are not rejected here; they are skipped during sync.
func (s *SyncConfigSpec) Validate() error {
	if s.SourceCluster == "" {
		return fmt.Errorf("spec.sourceCluster is required")
	}

	policy := s.Policy()
	if !lo.Contains([]NamespaceHandling{NamespaceHandlingCreate, NamespaceHandlingFail}, policy) {
		return fmt.Errorf("spec.namespaceHandling %q is invalid, must be %q or %q",
			policy, NamespaceHandlingCreate, NamespaceHandlingFail)
	}

	if lo.Contains(s.TargetClusters, "") {
		return fmt.Errorf("spec.targetClusters must not contain empty cluster names")
	}

	for i, rs := range s.Resources {
		if rs.Kind == "" {
			return fmt.Errorf("spec.resources[%d].kind is required", i)
		}
	}

	return nil
}
