package merge

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"hpa-bench/internal/results"
	"hpa-bench/internal/table"
)

// Colunas conhecidas dos CSVs de cpu/hpa
const (
	CoresColumn           = "cores"
	CurrentReplicasColumn = "current_replicas"
	DesiredReplicasColumn = "desired_replicas"
	MaxReplicasColumn     = "max_replicas"
)

// hpaFiles ordem em que os CSVs de HPA entram no join
var hpaFiles = []string{
	results.HPACurrentFile,
	results.HPADesiredFile,
	results.HPAMaxFile,
}

var replicaColumns = []string{
	CurrentReplicasColumn,
	DesiredReplicasColumn,
	MaxReplicasColumn,
}

// LocustColumnMapping renomeia o histórico do locust para snake case
var LocustColumnMapping = map[string]string{
	"Timestamp":                   "timestamp",
	"User Count":                  "user_count",
	"Requests/s":                  "req_s",
	"Total Request Count":         "total_request_count",
	"Total Failure Count":         "total_failure_count",
	"Total Median Response Time":  "total_median_response_time",
	"Total Average Response Time": "total_average_response_time",
}

// collectAggregate monta um frame por serviço (cpu + hpa) e um frame all_services
// com a soma da arquitetura.
func (m *Merger) collectAggregate(arch string) ([]*table.Table, []FrameInfo, error) {
	if arch == results.Monolith {
		dir := m.layout.MonolithDir(arch)
		if !results.IsDir(dir) {
			// layout antigo: CSVs do monolito direto em cpu_hpa/
			dir = m.layout.CPUHPADir(arch)
		}

		frame, err := serviceFrame(dir)
		if err != nil {
			return nil, nil, err
		}
		if frame == nil {
			log.Debug().Str("architecture", arch).Msg("No cpu data for monolith")
			return nil, nil, nil
		}

		frame = tag(frame, results.Monolith, arch)
		log.Info().Str("architecture", arch).Int("rows", frame.Len()).Msg("Monolith data collected")

		return []*table.Table{frame}, []FrameInfo{{
			Kind:         "cpu_hpa",
			Architecture: arch,
			Service:      results.Monolith,
			Source:       dir,
			Rows:         frame.Len(),
		}}, nil
	}

	dirs, err := m.layout.ServiceDirs(arch)
	if err != nil {
		return nil, nil, err
	}

	var (
		frames []*table.Table
		infos  []FrameInfo
	)
	for _, dir := range dirs {
		frame, err := serviceFrame(dir.Path)
		if err != nil {
			return nil, nil, err
		}
		if frame == nil {
			log.Debug().Str("architecture", arch).Str("dir", dir.DirName).Msg("No cpu data in service directory")
			continue
		}

		frame = tag(frame, dir.Service, arch)
		frames = append(frames, frame)
		infos = append(infos, FrameInfo{
			Kind:         "cpu_hpa",
			Architecture: arch,
			Service:      dir.Service,
			Source:       dir.Path,
			Rows:         frame.Len(),
		})

		log.Info().
			Str("architecture", arch).
			Str("service", dir.Service).
			Int("rows", frame.Len()).
			Msg("Service data collected")
	}

	if len(frames) == 0 {
		return nil, nil, nil
	}

	total, err := architectureTotals(frames)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to aggregate %s: %w", arch, err)
	}
	total = tag(total, AllServices, arch)
	frames = append(frames, total)
	infos = append(infos, FrameInfo{
		Kind:         "cpu_hpa",
		Architecture: arch,
		Service:      AllServices,
		Source:       m.layout.CPUHPADir(arch),
		Rows:         total.Len(),
	})

	log.Info().Str("architecture", arch).Int("rows", total.Len()).Msg("Architecture totals aggregated")

	return frames, infos, nil
}

// serviceFrame cpu (deployment ou soma dos pods) com os CSVs de HPA em outer join.
// Retorna nil quando o diretório não tem dado de cpu.
func serviceFrame(dir string) (*table.Table, error) {
	cpu, err := cpuFrame(dir)
	if err != nil || cpu == nil {
		return nil, err
	}

	frames := []*table.Table{cpu}
	for _, name := range hpaFiles {
		path := filepath.Join(dir, name)
		if !results.Exists(path) {
			continue
		}
		t, err := readFrame(path)
		if err != nil {
			return nil, err
		}
		if t != nil {
			frames = append(frames, t)
		}
	}

	return joinAll(frames)
}

// cpuFrame prioriza cpu_deployment.csv; sem ele soma cpu_pod_long.csv por timestamp
func cpuFrame(dir string) (*table.Table, error) {
	deployment := filepath.Join(dir, results.CPUDeploymentFile)
	if results.Exists(deployment) {
		return readFrame(deployment)
	}

	pods := filepath.Join(dir, results.CPUPodLongFile)
	if !results.Exists(pods) {
		return nil, nil
	}

	t, err := readFrame(pods)
	if err != nil || t == nil {
		return nil, err
	}
	summed, err := t.GroupSum(TimestampColumn, CoresColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", pods, err)
	}
	return summed, nil
}

// architectureTotals soma cores (e réplicas, se houver) de todos os serviços por timestamp
func architectureTotals(frames []*table.Table) (*table.Table, error) {
	all := table.Concat(frames...)

	cores, err := all.GroupSum(TimestampColumn, CoresColumn)
	if err != nil {
		return nil, err
	}

	if !all.Has(CurrentReplicasColumn) {
		return cores, nil
	}

	var present []string
	for _, c := range replicaColumns {
		if all.Has(c) {
			present = append(present, c)
		}
	}
	replicas, err := all.GroupSum(TimestampColumn, present...)
	if err != nil {
		return nil, err
	}

	return table.OuterJoin(cores, replicas, TimestampColumn, DupSuffix)
}
