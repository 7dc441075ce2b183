// Package fetcher reads ConfigMaps and Secrets from a source cluster.
// Selection is by name when a name is given, otherwise by namespace, otherwise
// across all namespaces. Read errors are logged and reported as an empty result.
package fetcher

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	api "k8s.io/kubernetes/pkg/apis/core"
	"sigs.k8s.io/controller-runtime/pkg/client"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
)

// Fetch returns the objects of kind selected by name and namespace.
// Each returned object is a *corev1.ConfigMap or *corev1.Secret. A name requires a namespace.
func Fetch(ctx context.Context, kubeClient kubernetes.Interface, kind syncv1.ResourceKind, name, namespace string) []client.Object {
	var (
		objects []client.Object
		err     error
	)

	switch kind {
	case syncv1.KindConfigMap:
		objects, err = fetchConfigMaps(ctx, kubeClient, name, namespace)
	case syncv1.KindSecret:
		objects, err = fetchSecrets(ctx, kubeClient, name, namespace)
	default:
		klog.V(4).Infof("Skipping unsupported kind %q", kind)
		return nil
	}

	if err != nil {
		klog.Errorf("Failed to fetch %s %s: %v", kind, describe(name, namespace), err)
		return nil
	}
	return objects
}

func fetchConfigMaps(ctx context.Context, kubeClient kubernetes.Interface, name, namespace string) ([]client.Object, error) {
	if name != "" {
		cm, err := kubeClient.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		return []client.Object{cm}, nil
	}

	cmList, err := kubeClient.CoreV1().ConfigMaps(listNamespace(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	objects := make([]client.Object, 0, len(cmList.Items))
	for i := range cmList.Items {
		objects = append(objects, &cmList.Items[i])
	}
	return objects, nil
}

func fetchSecrets(ctx context.Context, kubeClient kubernetes.Interface, name, namespace string) ([]client.Object, error) {
	if name != "" {
		secret, err := kubeClient.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		return []client.Object{secret}, nil
	}

	secretList, err := kubeClient.CoreV1().Secrets(listNamespace(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	objects := make([]client.Object, 0, len(secretList.Items))
	for i := range secretList.Items {
		objects = append(objects, &secretList.Items[i])
	}
	return objects, nil
}

// listNamespace maps an empty namespace to a cluster wide list
func listNamespace(namespace string) string {
	if namespace == "" {
		return api.NamespaceAll
	}
	return namespace
}

func describe(name, namespace string) string {
	switch {
	case name != "":
		return namespace + "/" + name
	case namespace != "":
		return "in namespace " + namespace
	default:
		return "in all namespaces"
	}
}
