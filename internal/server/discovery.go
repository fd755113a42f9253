package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// ResolveServiceURL resolves a Prometheus base URL from an in-cluster
// Kubernetes Service reference of the form "namespace/name" or
// "namespace/name:port". When no port is given and the Service exposes a
// single port, that port is used.
//
// This only works when running inside a cluster; outside, set
// PROMETHEUS_URL directly.
func ResolveServiceURL(ctx context.Context, ref string) (string, error) {
	namespace, name, port, err := parseServiceRef(ref)
	if err != nil {
		return "", err
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return "", fmt.Errorf("not running in-cluster, cannot resolve service %q: %w", ref, err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return "", fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	svc, err := clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}

	if port == 0 {
		if len(svc.Spec.Ports) != 1 {
			return "", fmt.Errorf("service %s/%s exposes %d ports, specify one as namespace/name:port",
				namespace, name, len(svc.Spec.Ports))
		}
		port = svc.Spec.Ports[0].Port
	}

	return fmt.Sprintf("http://%s.%s.svc:%d", name, namespace, port), nil
}

func parseServiceRef(ref string) (namespace, name string, port int32, err error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("invalid service reference %q, expected namespace/name[:port]", ref)
	}
	namespace = parts[0]
	name = parts[1]

	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		p, perr := strconv.ParseInt(name[idx+1:], 10, 32)
		if perr != nil || p <= 0 || p > 65535 {
			return "", "", 0, fmt.Errorf("invalid port in service reference %q", ref)
		}
		port = int32(p)
		name = name[:idx]
	}
	return namespace, name, port, nil
}
