package results

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Convenções de diretório e nomes de arquivo dos resultados
const (
	CPUHPADirName = "cpu_hpa"
	LocustDirName = "locust"

	Monolith = "monolith"

	CPUDeploymentFile = "cpu_deployment.csv"
	CPUPodLongFile    = "cpu_pod_long.csv"
	HPACurrentFile    = "hpa_current.csv"
	HPADesiredFile    = "hpa_desired.csv"
	HPAMaxFile        = "hpa_max.csv"

	// Sufixo usado pelo locust (e pelo nosso loadtest) no prefixo dos CSVs
	LocustRunSuffix = "_run"
)

// DefaultArchitectures arquiteturas comparadas nos experimentos
var DefaultArchitectures = []string{"decoupled", "functional", "monolith"}

// Layout resolve caminhos da árvore results/<arquitetura>/{cpu_hpa,locust}
type Layout struct {
	BaseDir string
}

// NewLayout cria layout a partir do diretório base
func NewLayout(baseDir string) Layout {
	return Layout{BaseDir: baseDir}
}

// ArchitectureDir results/<arch>
func (l Layout) ArchitectureDir(arch string) string {
	return filepath.Join(l.BaseDir, arch)
}

// CPUHPADir results/<arch>/cpu_hpa
func (l Layout) CPUHPADir(arch string) string {
	return filepath.Join(l.BaseDir, arch, CPUHPADirName)
}

// MonolithDir results/<arch>/cpu_hpa/monolith
func (l Layout) MonolithDir(arch string) string {
	return filepath.Join(l.CPUHPADir(arch), Monolith)
}

// ServiceDir results/<arch>/cpu_hpa/<dir>
func (l Layout) ServiceDir(arch, dirName string) string {
	return filepath.Join(l.CPUHPADir(arch), dirName)
}

// LocustDir results/<arch>/locust
func (l Layout) LocustDir(arch string) string {
	return filepath.Join(l.BaseDir, arch, LocustDirName)
}

// LocustPrefix prefixo dos CSVs de carga: results/<arch>/locust/<arch>_run
func (l Layout) LocustPrefix(arch string) string {
	return filepath.Join(l.LocustDir(arch), arch+LocustRunSuffix)
}

// LocustHistoryFile results/<arch>/locust/<arch>_run_stats_history.csv
func (l Layout) LocustHistoryFile(arch string) string {
	return l.LocustPrefix(arch) + "_stats_history.csv"
}

// ServiceDir diretório de um serviço dentro de cpu_hpa
type ServiceDir struct {
	DirName string // nome do diretório (ex: deploy-cart-svc)
	Service string // nome do serviço derivado (ex: cart)
	Path    string
}

// ServiceDirs lista os subdiretórios de cpu_hpa em ordem alfabética.
// Diretório ausente não é erro: retorna lista vazia.
func (l Layout) ServiceDirs(arch string) ([]ServiceDir, error) {
	root := l.CPUHPADir(arch)
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	dirs := make([]ServiceDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirs = append(dirs, ServiceDir{
			DirName: e.Name(),
			Service: ServiceName(e.Name()),
			Path:    filepath.Join(root, e.Name()),
		})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].DirName < dirs[j].DirName })
	return dirs, nil
}

// ServiceName deriva o nome do serviço: segundo token separado por "-" quando existir
func ServiceName(dirName string) string {
	parts := strings.Split(dirName, "-")
	if len(parts) > 1 {
		return parts[1]
	}
	return dirName
}

// CSVFiles lista *.csv de um diretório em ordem alfabética (vazio se não existir)
func CSVFiles(dir string) ([]string, error) {
	if !IsDir(dir) {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}

	regular := files[:0]
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() {
			regular = append(regular, f)
		}
	}
	sort.Strings(regular)
	return regular, nil
}

// IsPodLong verifica se o arquivo é o cpu_pod_long.csv (ignorando caixa)
func IsPodLong(path string) bool {
	return strings.EqualFold(filepath.Base(path), CPUPodLongFile)
}

// Exists verifica se o caminho existe
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir verifica se o caminho é um diretório
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
