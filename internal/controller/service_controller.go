package controller

import (
	"context"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/state"
)

// ServiceReconciler feeds Service-declared hostnames into the desired
// record set. Only Services carrying the hostname annotation take part.
// Targets come from the load-balancer status, falling back to the
// cluster IPs and then the target annotation.
type ServiceReconciler struct {
	client.Client
	Log     logr.Logger
	Desired *state.Builder
}

func (r *ServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	key := state.SourceKey{Kind: "Service", Namespace: req.Namespace, Name: req.Name}

	var svc corev1.Service
	if err := r.Get(ctx, req.NamespacedName, &svc); err != nil {
		if client.IgnoreNotFound(err) == nil {
			r.Desired.Remove(key)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}
	if !svc.DeletionTimestamp.IsZero() {
		r.Desired.Remove(key)
		return ctrl.Result{}, nil
	}

	hostnames := annotationHostnames(svc.Annotations)
	target := serviceTarget(&svc)
	if target == "" {
		target = svc.Annotations[targetAnnotation]
	}
	if len(hostnames) == 0 || target == "" {
		r.Desired.Set(key, nil)
		return ctrl.Result{}, nil
	}

	opts := parseRecordOpts(r.Log.WithValues("service", req.NamespacedName), svc.Annotations)
	records := make([]dns.Record, 0, len(hostnames))
	for _, hostname := range hostnames {
		records = append(records, recordForTarget(hostname, target, opts))
	}
	r.Desired.Set(key, records)
	return ctrl.Result{}, nil
}

// serviceTarget picks an address for the Service: load-balancer ingress
// first, then the primary cluster IP.
func serviceTarget(svc *corev1.Service) string {
	for _, lb := range svc.Status.LoadBalancer.Ingress {
		if lb.IP != "" {
			return lb.IP
		}
		if lb.Hostname != "" {
			return lb.Hostname
		}
	}
	for _, ip := range svc.Spec.ClusterIPs {
		if ip != "" && ip != corev1.ClusterIPNone {
			return ip
		}
	}
	if svc.Spec.ClusterIP != "" && svc.Spec.ClusterIP != corev1.ClusterIPNone {
		return svc.Spec.ClusterIP
	}
	return ""
}

func (r *ServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Service{}).
		WithEventFilter(predicate.ResourceVersionChangedPredicate{}).
		Complete(r)
}
