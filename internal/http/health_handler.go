package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lexia-auth/internal/repository"
)

// StoreStatusReporter expone el modo actual del almacen de usuarios.
type StoreStatusReporter interface {
	Status() repository.StoreStatus
}

type HealthHandler struct {
	store     StoreStatusReporter
	providers []string
	startedAt time.Time
}

func NewHealthHandler(store StoreStatusReporter, providers []string) *HealthHandler {
	return &HealthHandler{store: store, providers: providers, startedAt: time.Now().UTC()}
}

// Health maneja GET /health. Un almacen degradado sigue respondiendo 200.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	st := h.store.Status()
	if st.Degraded {
		status = "degraded"
	}
	providers := h.providers
	if providers == nil {
		providers = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"store":     st,
		"providers": providers,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
