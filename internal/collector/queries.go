package collector

import (
	"fmt"
	"strings"

	"hpa-bench/internal/results"
)

// QueryTemplate template de query PromQL com placeholders {{.var}}
type QueryTemplate struct {
	Name        string
	Description string
	Query       string
	Variables   []string

	// arquivo e colunas gerados a partir do resultado
	File      string
	ValueName string
	LabelName string // label que vira coluna (vazio: série única)
}

// Queries usadas para gerar a árvore cpu_hpa
var (
	CPUDeploymentQuery = QueryTemplate{
		Name:        "cpu_deployment",
		Description: "CPU usage of the whole deployment in cores",
		Query: `
sum(rate(container_cpu_usage_seconds_total{namespace="{{.namespace}}",pod=~"{{.pod_selector}}",container!="",container!="POD"}[{{.rate_window}}]))
`,
		Variables: []string{"namespace", "pod_selector", "rate_window"},
		File:      results.CPUDeploymentFile,
		ValueName: "cores",
	}

	CPUPodQuery = QueryTemplate{
		Name:        "cpu_pod_long",
		Description: "CPU usage per pod in cores",
		Query: `
sum by (pod) (rate(container_cpu_usage_seconds_total{namespace="{{.namespace}}",pod=~"{{.pod_selector}}",container!="",container!="POD"}[{{.rate_window}}]))
`,
		Variables: []string{"namespace", "pod_selector", "rate_window"},
		File:      results.CPUPodLongFile,
		ValueName: "cores",
		LabelName: "pod",
	}

	HPACurrentReplicasQuery = QueryTemplate{
		Name:        "hpa_current",
		Description: "Current number of replicas",
		Query: `
max(kube_horizontalpodautoscaler_status_current_replicas{namespace="{{.namespace}}",horizontalpodautoscaler="{{.hpa_name}}"})
`,
		Variables: []string{"namespace", "hpa_name"},
		File:      results.HPACurrentFile,
		ValueName: "current_replicas",
	}

	HPADesiredReplicasQuery = QueryTemplate{
		Name:        "hpa_desired",
		Description: "Desired number of replicas",
		Query: `
max(kube_horizontalpodautoscaler_status_desired_replicas{namespace="{{.namespace}}",horizontalpodautoscaler="{{.hpa_name}}"})
`,
		Variables: []string{"namespace", "hpa_name"},
		File:      results.HPADesiredFile,
		ValueName: "desired_replicas",
	}

	HPAMaxReplicasQuery = QueryTemplate{
		Name:        "hpa_max",
		Description: "Maximum number of replicas",
		Query: `
max(kube_horizontalpodautoscaler_spec_max_replicas{namespace="{{.namespace}}",horizontalpodautoscaler="{{.hpa_name}}"})
`,
		Variables: []string{"namespace", "hpa_name"},
		File:      results.HPAMaxFile,
		ValueName: "max_replicas",
	}
)

// AllTemplates templates na ordem de coleta
func AllTemplates() []QueryTemplate {
	return []QueryTemplate{
		CPUDeploymentQuery,
		CPUPodQuery,
		HPACurrentReplicasQuery,
		HPADesiredReplicasQuery,
		HPAMaxReplicasQuery,
	}
}

// QueryBuilder substitui as variáveis de um template
type QueryBuilder struct {
	template QueryTemplate
	vars     map[string]string
}

// NewQueryBuilder cria builder para o template
func NewQueryBuilder(template QueryTemplate) *QueryBuilder {
	return &QueryBuilder{
		template: template,
		vars:     make(map[string]string),
	}
}

// WithNamespace define o namespace
func (qb *QueryBuilder) WithNamespace(namespace string) *QueryBuilder {
	qb.vars["namespace"] = namespace
	return qb
}

// WithTarget define HPA e seletor de pods a partir do alvo
func (qb *QueryBuilder) WithTarget(t Target) *QueryBuilder {
	qb.vars["hpa_name"] = t.HPA
	qb.vars["pod_selector"] = t.PodSelector()
	return qb
}

// WithRateWindow define a janela do rate()
func (qb *QueryBuilder) WithRateWindow(window string) *QueryBuilder {
	qb.vars["rate_window"] = window
	return qb
}

// Build constrói a query final
func (qb *QueryBuilder) Build() (string, error) {
	query := strings.TrimSpace(qb.template.Query)

	for key, value := range qb.vars {
		query = strings.ReplaceAll(query, fmt.Sprintf("{{.%s}}", key), value)
	}

	if strings.Contains(query, "{{.") {
		return "", fmt.Errorf("query %s contains unsubstituted variables", qb.template.Name)
	}

	return strings.Join(strings.Fields(query), " "), nil
}
