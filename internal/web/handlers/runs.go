package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"hpa-bench/internal/storage"
)

// RunsHandler expõe o histórico de execuções
type RunsHandler struct {
	store *storage.Persistence
}

// NewRunsHandler cria um novo handler
func NewRunsHandler(store *storage.Persistence) *RunsHandler {
	return &RunsHandler{store: store}
}

// List retorna as execuções mais recentes
// GET /api/v1/runs?kind=loadtest&limit=20
func (h *RunsHandler) List(c *gin.Context) {
	kind := storage.RunKind(c.Query("kind"))
	switch kind {
	case "", storage.KindMerge, storage.KindLoadTest, storage.KindCollect:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kind: " + string(kind)})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(kind, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get retorna uma execução; testes de carga incluem histórico e endpoints
// GET /api/v1/runs/:id
func (h *RunsHandler) Get(c *gin.Context) {
	id := c.Param("id")

	run, err := h.store.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found: " + id})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"run": run}
	if run.Kind == storage.KindLoadTest {
		history, err := h.store.LoadHistory(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		endpoints, err := h.store.LoadEndpointStats(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response["history"] = history
		response["endpoints"] = endpoints
	}

	c.JSON(http.StatusOK, response)
}

// Stats retorna estatísticas do banco
// GET /api/v1/runs/stats
func (h *RunsHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
