package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"hpa-bench/internal/results"
	"hpa-bench/internal/table"
)

// Mode estratégia de consolidação
type Mode string

const (
	// ModeStandard junta todos os CSVs de cada serviço (exceto cpu_pod_long)
	ModeStandard Mode = "standard"
	// ModeAggregate prioriza cpu_deployment, agrega pods e gera linhas all_services
	ModeAggregate Mode = "aggregate"
)

// Nomes fixos dos arquivos de saída e colunas adicionadas
const (
	AllOutputFile    = "merged_all.csv"
	LocustOutputFile = "merged_locust.csv"

	TimestampColumn    = "timestamp"
	ServiceColumn      = "service"
	ArchitectureColumn = "architecture"

	DupSuffix   = "_dup"
	AllServices = "all_services"
)

// Config configuração do merge
type Config struct {
	ResultsDir    string
	Architectures []string
	Mode          Mode
}

// DefaultConfig retorna configuração padrão
func DefaultConfig() *Config {
	archs := make([]string, len(results.DefaultArchitectures))
	copy(archs, results.DefaultArchitectures)

	return &Config{
		ResultsDir:    "results",
		Architectures: archs,
		Mode:          ModeStandard,
	}
}

// FrameInfo descreve um frame que entrou na consolidação
type FrameInfo struct {
	Kind         string `json:"kind"` // cpu_hpa ou locust
	Architecture string `json:"architecture"`
	Service      string `json:"service,omitempty"`
	Source       string `json:"source"`
	Rows         int    `json:"rows"`
}

// Result resultado consolidado
type Result struct {
	All    *table.Table // nil quando não houve dados de cpu/hpa
	Locust *table.Table // nil quando não houve CSV do locust
	Frames []FrameInfo
}

// Merger consolida os resultados das arquiteturas
type Merger struct {
	config *Config
	layout results.Layout
}

// New cria novo merger
func New(config *Config) (*Merger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Mode {
	case ModeStandard, ModeAggregate:
	case "":
		config.Mode = ModeStandard
	default:
		return nil, fmt.Errorf("unknown merge mode %q", config.Mode)
	}

	return &Merger{
		config: config,
		layout: results.NewLayout(config.ResultsDir),
	}, nil
}

// Run percorre as arquiteturas e monta os dois datasets consolidados
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	var (
		cpuFrames    []*table.Table
		locustFrames []*table.Table
		result       = &Result{}
	)

	for _, arch := range m.config.Architectures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if results.IsDir(m.layout.CPUHPADir(arch)) {
			frames, infos, err := m.collectCPUHPA(arch)
			if err != nil {
				return nil, err
			}
			cpuFrames = append(cpuFrames, frames...)
			result.Frames = append(result.Frames, infos...)
		} else {
			log.Debug().Str("architecture", arch).Msg("No cpu_hpa directory, skipping")
		}

		locust, info, err := m.readLocust(arch)
		if err != nil {
			return nil, err
		}
		if locust != nil {
			locustFrames = append(locustFrames, locust)
			result.Frames = append(result.Frames, info)
		}
	}

	if len(cpuFrames) > 0 {
		all := table.Concat(cpuFrames...)
		if all.Has(TimestampColumn) {
			all = all.SortBy(TimestampColumn)
		}
		result.All = all
	}

	if len(locustFrames) > 0 {
		result.Locust = table.Concat(locustFrames...)
	}

	log.Info().
		Str("mode", string(m.config.Mode)).
		Int("frames", len(result.Frames)).
		Int("cpu_hpa_rows", result.All.Len()).
		Int("locust_rows", result.Locust.Len()).
		Msg("Merge completed")

	return result, nil
}

func (m *Merger) collectCPUHPA(arch string) ([]*table.Table, []FrameInfo, error) {
	if m.config.Mode == ModeAggregate {
		return m.collectAggregate(arch)
	}
	return m.collectStandard(arch)
}

// readLocust lê results/<arch>/locust/<arch>_run_stats_history.csv se existir
func (m *Merger) readLocust(arch string) (*table.Table, FrameInfo, error) {
	path := m.layout.LocustHistoryFile(arch)
	if !results.Exists(path) {
		log.Debug().Str("architecture", arch).Str("file", path).Msg("Locust history not found, skipping")
		return nil, FrameInfo{}, nil
	}

	t, err := table.Read(path)
	if err != nil {
		return nil, FrameInfo{}, fmt.Errorf("failed to read locust history: %w", err)
	}

	if m.config.Mode == ModeAggregate {
		t = t.Rename(LocustColumnMapping)
	}
	t = t.WithConstant(ArchitectureColumn, arch)

	log.Info().
		Str("architecture", arch).
		Int("rows", t.Len()).
		Msg("Locust history collected")

	return t, FrameInfo{Kind: "locust", Architecture: arch, Source: path, Rows: t.Len()}, nil
}

// joinAll faz outer join sequencial pela coluna timestamp descartando colunas _dup
func joinAll(frames []*table.Table) (*table.Table, error) {
	if len(frames) == 0 {
		return nil, nil
	}

	merged := frames[0]
	if !merged.Has(TimestampColumn) && len(frames) > 1 {
		return nil, fmt.Errorf("first frame has no %q column", TimestampColumn)
	}
	for _, f := range frames[1:] {
		joined, err := table.OuterJoin(merged, f, TimestampColumn, DupSuffix)
		if err != nil {
			return nil, err
		}
		merged = joined.DropSuffixed(DupSuffix)
	}
	return merged.DropSuffixed(DupSuffix), nil
}

// Write grava merged_all.csv e merged_locust.csv no diretório informado.
// Datasets vazios não geram arquivo.
func (r *Result) Write(outputDir string) ([]string, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string

	if r.All != nil {
		path := filepath.Join(outputDir, AllOutputFile)
		if err := r.All.Write(path); err != nil {
			return written, err
		}
		log.Info().Str("file", path).Int("rows", r.All.Len()).Msg("Merged cpu/hpa data saved")
		written = append(written, path)
	}

	if r.Locust != nil {
		path := filepath.Join(outputDir, LocustOutputFile)
		if err := r.Locust.Write(path); err != nil {
			return written, err
		}
		log.Info().Str("file", path).Int("rows", r.Locust.Len()).Msg("Merged locust data saved")
		written = append(written, path)
	}

	return written, nil
}
