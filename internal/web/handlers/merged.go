package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"hpa-bench/internal/merge"
)

// MergedHandler serve os CSVs consolidados pelo merge
type MergedHandler struct {
	dir   string
	cache *DatasetCache
}

// NewMergedHandler cria um handler para os arquivos do diretório informado
func NewMergedHandler(dir string) *MergedHandler {
	return &MergedHandler{dir: dir, cache: NewDatasetCache()}
}

var mergedFiles = map[string]string{
	"all":    merge.AllOutputFile,
	"locust": merge.LocustOutputFile,
}

// Get retorna um dataset consolidado com filtros opcionais
// GET /api/v1/merged/:name?architecture=monolith&service=cart&format=csv
func (h *MergedHandler) Get(c *gin.Context) {
	name := c.Param("name")
	file, ok := mergedFiles[name]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown dataset: " + name + " (use all or locust)"})
		return
	}

	path := filepath.Join(h.dir, file)
	t, err := h.cache.Get(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found, run merge first: " + file})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to read merged dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if arch := c.Query(merge.ArchitectureColumn); arch != "" {
		t = t.Filter(merge.ArchitectureColumn, arch)
	}
	if service := c.Query(merge.ServiceColumn); service != "" {
		t = t.Filter(merge.ServiceColumn, service)
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", "attachment; filename="+file)
		c.Status(http.StatusOK)
		if err := t.WriteCSV(c.Writer); err != nil {
			log.Error().Err(err).Str("file", file).Msg("Failed to stream dataset")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file":    file,
		"columns": t.Columns,
		"rows":    t.Records(),
		"count":   t.Len(),
	})
}

// CacheStats estatísticas do cache de datasets
// GET /api/v1/cache
func (h *MergedHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}
