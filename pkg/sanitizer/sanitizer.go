// Package sanitizer strips server assigned identity from objects so they can be
// created on another cluster.
package sanitizer

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Sanitize returns a copy of obj with resourceVersion, uid, creationTimestamp and
// managedFields cleared. Everything else, including the payload, is left untouched.
func Sanitize(obj client.Object) client.Object {
	out := obj.DeepCopyObject().(client.Object)
	out.SetResourceVersion("")
	out.SetUID("")
	out.SetCreationTimestamp(metav1.Time{})
	out.SetManagedFields(nil)
	return out
}
