package controller

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/config"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/dns"
	"github.com/yuriy-kovalchuk/yk-zone-sync/internal/state"
)

// HTTPRouteReconciler feeds HTTPRoute hostnames into the desired record
// set. HTTPRoutes carry no address of their own, so the target comes
// from the target annotation or the configured domain map.
type HTTPRouteReconciler struct {
	client.Client
	Log       logr.Logger
	DomainMap *config.DomainMap
	Desired   *state.Builder
}

func (r *HTTPRouteReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	key := state.SourceKey{Kind: "HTTPRoute", Namespace: req.Namespace, Name: req.Name}

	var route gatewayv1.HTTPRoute
	if err := r.Get(ctx, req.NamespacedName, &route); err != nil {
		if client.IgnoreNotFound(err) == nil {
			r.Desired.Remove(key)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}
	if !route.DeletionTimestamp.IsZero() {
		r.Desired.Remove(key)
		return ctrl.Result{}, nil
	}

	opts := parseRecordOpts(r.Log.WithValues("httproute", req.NamespacedName), route.Annotations)
	annotationTarget := route.Annotations[targetAnnotation]

	var records []dns.Record
	for _, h := range route.Spec.Hostnames {
		hostname := string(h)
		if hostname == "" || strings.HasPrefix(hostname, "*") {
			continue
		}
		target := annotationTarget
		if target == "" && r.DomainMap != nil {
			if t, ok := r.DomainMap.LookupTarget(hostname); ok {
				target = t
			}
		}
		if target == "" {
			r.Log.V(1).Info("no target for hostname", "hostname", hostname)
			continue
		}
		records = append(records, recordForTarget(hostname, target, opts))
	}

	r.Desired.Set(key, records)
	return ctrl.Result{}, nil
}

func (r *HTTPRouteReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gatewayv1.HTTPRoute{}).
		WithEventFilter(predicate.Or(
			predicate.GenerationChangedPredicate{},
			predicate.AnnotationChangedPredicate{},
		)).
		Complete(r)
}
