// Package clusteraccess resolves cluster identifiers to authenticated Kubernetes clients.
// Credentials for every cluster live in a kubeconfig file named <clusterID>.kubeconfig
// inside a conventional directory. Files are read on every call so that rotated
// credentials take effect without a restart.
package clusteraccess

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"github.com/cloudpilot-ai/clustersync/pkg/config"
)

// Accessor produces a client bound to the credentials of a cluster
type Accessor interface {
	ClientFor(clusterID string) (kubernetes.Interface, error)
}

// KubeconfigAccessor builds clients from kubeconfig files in a directory
type KubeconfigAccessor struct {
	dir string
}

// NewKubeconfigAccessor creates a KubeconfigAccessor reading from dir
func NewKubeconfigAccessor(dir string) *KubeconfigAccessor {
	return &KubeconfigAccessor{
		dir: dir,
	}
}

// KubeconfigPath returns the credential file path for a cluster identifier.
// The identifier must be a single path element.
func (a *KubeconfigAccessor) KubeconfigPath(clusterID string) (string, error) {
	if clusterID == "" || clusterID == "." || clusterID == ".." || filepath.Base(clusterID) != clusterID {
		return "", fmt.Errorf("invalid cluster identifier %q", clusterID)
	}
	return filepath.Join(a.dir, clusterID+config.KubeconfigSuffix), nil
}

// ClientFor loads the kubeconfig of clusterID and returns a client for it.
// Nothing is cached between calls.
func (a *KubeconfigAccessor) ClientFor(clusterID string) (kubernetes.Interface, error) {
	path, err := a.KubeconfigPath(clusterID)
	if err != nil {
		return nil, err
	}

	kubeconfigData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig for cluster %s: %w", clusterID, err)
	}

	client, err := buildClient(kubeconfigData)
	if err != nil {
		return nil, fmt.Errorf("failed to build client for cluster %s: %w", clusterID, err)
	}

	klog.V(4).Infof("Built client for cluster %s from %s", clusterID, path)
	return client, nil
}

// buildClient creates a Kubernetes client from kubeconfig data
func buildClient(kubeconfigData []byte) (kubernetes.Interface, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfigData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// Static serves pre-built clients keyed by cluster identifier
type Static map[string]kubernetes.Interface

// ClientFor returns the client registered for clusterID
func (s Static) ClientFor(clusterID string) (kubernetes.Interface, error) {
	client, ok := s[clusterID]
	if !ok {
		return nil, fmt.Errorf("no client registered for cluster %s", clusterID)
	}
	return client, nil
}
