package controller

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	networkingv1 "k8s.io/api/networking/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/state"
)

// IngressReconciler feeds Ingress-declared hostnames into the desired
// record set. Targets come from the load-balancer status; the target
// annotation is the fallback for clusters where the status never fills.
type IngressReconciler struct {
	client.Client
	Log     logr.Logger
	Desired *state.Builder
}

func (r *IngressReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	key := state.SourceKey{Kind: "Ingress", Namespace: req.Namespace, Name: req.Name}

	var ing networkingv1.Ingress
	if err := r.Get(ctx, req.NamespacedName, &ing); err != nil {
		if client.IgnoreNotFound(err) == nil {
			r.Desired.Remove(key)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}
	if !ing.DeletionTimestamp.IsZero() {
		r.Desired.Remove(key)
		return ctrl.Result{}, nil
	}

	hostnames := make([]string, 0, len(ing.Spec.Rules))
	for _, rule := range ing.Spec.Rules {
		if rule.Host == "" || strings.HasPrefix(rule.Host, "*") {
			continue
		}
		hostnames = append(hostnames, rule.Host)
	}
	hostnames = append(hostnames, annotationHostnames(ing.Annotations)...)

	target := ingressTarget(&ing)
	if target == "" {
		target = ing.Annotations[targetAnnotation]
	}
	if target == "" || len(hostnames) == 0 {
		// Nothing resolvable yet (e.g. LB address pending); clear any
		// previous contribution so stale records get cleaned up.
		r.Desired.Set(key, nil)
		return ctrl.Result{}, nil
	}

	opts := parseRecordOpts(r.Log.WithValues("ingress", req.NamespacedName), ing.Annotations)
	records := make([]dns.Record, 0, len(hostnames))
	for _, hostname := range hostnames {
		records = append(records, recordForTarget(hostname, target, opts))
	}
	r.Desired.Set(key, records)
	return ctrl.Result{}, nil
}

// ingressTarget picks the first load-balancer address from the Ingress
// status, preferring IPs over hostnames.
func ingressTarget(ing *networkingv1.Ingress) string {
	for _, lb := range ing.Status.LoadBalancer.Ingress {
		if lb.IP != "" {
			return lb.IP
		}
	}
	for _, lb := range ing.Status.LoadBalancer.Ingress {
		if lb.Hostname != "" {
			return lb.Hostname
		}
	}
	return ""
}

func (r *IngressReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&networkingv1.Ingress{}).
		WithEventFilter(predicate.ResourceVersionChangedPredicate{}).
		Complete(r)
}
