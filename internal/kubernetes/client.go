package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/rs/zerolog/log"
)

// HPAInfo dados de um HPA relevantes para a coleta
type HPAInfo struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	ScaleTargetKind string `json:"scale_target_kind"`
	ScaleTargetName string `json:"scale_target_name"`
	MinReplicas     int32  `json:"min_replicas"`
	MaxReplicas     int32  `json:"max_replicas"`
	CurrentReplicas int32  `json:"current_replicas"`
	DesiredReplicas int32  `json:"desired_replicas"`
	TargetCPU       *int32 `json:"target_cpu,omitempty"`
	TargetMemory    *int32 `json:"target_memory,omitempty"`
}

// Client encapsula as operações do Kubernetes
type Client struct {
	clientset kubernetes.Interface
	cluster   string
}

// NewClient cria um novo cliente Kubernetes
func NewClient(clientset kubernetes.Interface, clusterName string) *Client {
	return &Client{
		clientset: clientset,
		cluster:   clusterName,
	}
}

// NewClientFromKubeconfig cria cliente a partir do kubeconfig (contexto vazio usa o atual)
func NewClientFromKubeconfig(kubeconfigPath, contextName string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create client config: %w", err)
	}
	restConfig.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	cluster := contextName
	if cluster == "" {
		if raw, err := clientConfig.RawConfig(); err == nil {
			cluster = raw.CurrentContext
		}
	}

	log.Debug().
		Str("cluster", cluster).
		Str("server", restConfig.Host).
		Msg("Kubernetes client created")

	return NewClient(clientset, cluster), nil
}

// Cluster nome do cluster/contexto
func (c *Client) Cluster() string {
	return c.cluster
}

// TestConnection testa a conectividade com o cluster
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
	return err
}

// ListHPAs lista os HPAs de um namespace em ordem alfabética.
// labelSelector vazio lista todos.
func (c *Client) ListHPAs(ctx context.Context, namespace, labelSelector string) ([]HPAInfo, error) {
	hpas, err := c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list HPAs in namespace %s/%s: %w", c.cluster, namespace, err)
	}

	result := make([]HPAInfo, 0, len(hpas.Items))
	for i := range hpas.Items {
		result = append(result, convertHPA(&hpas.Items[i]))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// GetHPAs busca HPAs pelo nome; nomes inexistentes geram erro
func (c *Client) GetHPAs(ctx context.Context, namespace string, names []string) ([]HPAInfo, error) {
	result := make([]HPAInfo, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		hpa, err := c.clientset.AutoscalingV2().HorizontalPodAutoscalers(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to get HPA %s/%s/%s: %w", c.cluster, namespace, name, err)
		}
		result = append(result, convertHPA(hpa))
	}
	return result, nil
}

// convertHPA converte um HPA do Kubernetes para o modelo interno
func convertHPA(hpa *autoscalingv2.HorizontalPodAutoscaler) HPAInfo {
	info := HPAInfo{
		Name:            hpa.Name,
		Namespace:       hpa.Namespace,
		ScaleTargetKind: hpa.Spec.ScaleTargetRef.Kind,
		ScaleTargetName: hpa.Spec.ScaleTargetRef.Name,
		MaxReplicas:     hpa.Spec.MaxReplicas,
		CurrentReplicas: hpa.Status.CurrentReplicas,
		DesiredReplicas: hpa.Status.DesiredReplicas,
		MinReplicas:     1,
	}
	if hpa.Spec.MinReplicas != nil {
		info.MinReplicas = *hpa.Spec.MinReplicas
	}

	for _, metric := range hpa.Spec.Metrics {
		if metric.Type != autoscalingv2.ResourceMetricSourceType || metric.Resource == nil {
			continue
		}
		switch metric.Resource.Name {
		case corev1.ResourceCPU:
			info.TargetCPU = metric.Resource.Target.AverageUtilization
		case corev1.ResourceMemory:
			info.TargetMemory = metric.Resource.Target.AverageUtilization
		}
	}

	return info
}
