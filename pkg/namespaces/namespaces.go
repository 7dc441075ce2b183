// Package namespaces makes sure a target namespace exists before resources are written into it.
package namespaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apiserrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	syncv1 "github.com/cloudpilot-ai/clustersync/pkg/apis/syncconfig/v1"
)

// RetryableError asks the caller to retry the whole sync after Delay
type RetryableError struct {
	Namespace string
	Delay     time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("namespace '%s' does not exist in target cluster, and 'namespaceHandling' is set to 'fail'", e.Namespace)
}

// IsRetryable returns the RetryableError wrapped in err, if any
func IsRetryable(err error) (*RetryableError, bool) {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return retryable, true
	}
	return nil, false
}

// Guarantor ensures namespaces exist according to a NamespaceHandling policy
type Guarantor struct {
	retryDelay time.Duration
}

// NewGuarantor creates a Guarantor whose fail policy asks for a retry after retryDelay
func NewGuarantor(retryDelay time.Duration) *Guarantor {
	return &Guarantor{
		retryDelay: retryDelay,
	}
}

// EnsureNamespace makes sure namespace exists in the cluster behind client.
// Only a not-found read is acted on: the create policy creates the namespace and
// returns any create error as is, the fail policy returns a RetryableError.
// Other read errors are logged and ignored.
func (g *Guarantor) EnsureNamespace(ctx context.Context, client kubernetes.Interface, namespace string, policy syncv1.NamespaceHandling) error {
	_, err := client.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if err == nil {
		return nil
	}

	if !apiserrors.IsNotFound(err) {
		klog.V(4).Infof("Ignoring error reading namespace %s: %v", namespace, err)
		return nil
	}

	switch policy {
	case syncv1.NamespaceHandlingCreate:
		if _, err := client.CoreV1().Namespaces().Create(ctx, &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name: namespace,
			},
		}, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
		}
		klog.Infof("Created namespace %s as it does not exist in target cluster", namespace)
	case syncv1.NamespaceHandlingFail:
		return &RetryableError{
			Namespace: namespace,
			Delay:     g.retryDelay,
		}
	}

	return nil
}
