package handlers

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hpa-bench/internal/table"
)

// DatasetCache mantém em memória os CSVs consolidados já lidos.
// Uma entrada é relida quando o tamanho ou a data de modificação do arquivo muda.
type DatasetCache struct {
	entries map[string]*cachedDataset
	hits    int64
	misses  int64
	mu      sync.RWMutex
}

type cachedDataset struct {
	table   *table.Table
	size    int64
	modTime time.Time
}

// CacheStats estatísticas do cache
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewDatasetCache cria novo cache
func NewDatasetCache() *DatasetCache {
	return &DatasetCache{
		entries: make(map[string]*cachedDataset),
	}
}

// Get retorna a tabela do arquivo; o resultado é compartilhado e não deve ser alterado
func (c *DatasetCache) Get(path string) (*table.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()

	if ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.table, nil
	}

	t, err := table.Read(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.entries[path] = &cachedDataset{table: t, size: info.Size(), modTime: info.ModTime()}
	c.mu.Unlock()

	log.Debug().Str("file", path).Int("rows", t.Len()).Msg("Dataset loaded into cache")
	return t, nil
}

// Stats retorna estatísticas do cache
func (c *DatasetCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
