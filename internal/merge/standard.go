package merge

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"hpa-bench/internal/results"
	"hpa-bench/internal/table"
)

// collectStandard junta todos os CSVs de cada serviço, ignorando cpu_pod_long
func (m *Merger) collectStandard(arch string) ([]*table.Table, []FrameInfo, error) {
	if arch == results.Monolith {
		frame, err := m.mergeDir(m.layout.MonolithDir(arch))
		if err != nil {
			return nil, nil, err
		}
		if frame == nil {
			return nil, nil, nil
		}
		frame = tag(frame, results.Monolith, arch)
		return []*table.Table{frame}, []FrameInfo{{
			Kind:         "cpu_hpa",
			Architecture: arch,
			Service:      results.Monolith,
			Source:       m.layout.MonolithDir(arch),
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
		frame, err := m.mergeDir(dir.Path)
		if err != nil {
			return nil, nil, err
		}
		if frame == nil {
			log.Debug().Str("architecture", arch).Str("dir", dir.DirName).Msg("No usable CSV in service directory")
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
			Msg("Service data merged")
	}

	return frames, infos, nil
}

// mergeDir lê os CSVs do diretório (menos cpu_pod_long) e faz o join por timestamp
func (m *Merger) mergeDir(dir string) (*table.Table, error) {
	files, err := results.CSVFiles(dir)
	if err != nil {
		return nil, err
	}

	var frames []*table.Table
	for _, f := range files {
		if results.IsPodLong(f) {
			continue
		}
		t, err := readFrame(f)
		if err != nil {
			return nil, err
		}
		if t != nil {
			frames = append(frames, t)
		}
	}

	return joinAll(frames)
}

// readFrame lê um CSV de métricas. Arquivos sem coluna timestamp não entram no join.
func readFrame(path string) (*table.Table, error) {
	t, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if !t.Has(TimestampColumn) {
		log.Warn().Str("file", path).Msg("CSV without timestamp column, skipping")
		return nil, nil
	}
	return t, nil
}

func tag(t *table.Table, service, arch string) *table.Table {
	return t.WithConstant(ServiceColumn, service).WithConstant(ArchitectureColumn, arch)
}
