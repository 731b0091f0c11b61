// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelamos/personaforge/internal/core"
	"github.com/angelamos/personaforge/internal/persona"
)

// PersonaStats is the slice of the persona service the admin surface
// reads: generation counters and the size of the preview cache.
type PersonaStats interface {
	Stats(ctx context.Context) (*persona.Stats, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	personas   PersonaStats
	users      UserCounter
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	Personas   PersonaStats
	Users      UserCounter
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		personas:   cfg.Personas,
		users:      cfg.Users,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/personas", h.GetPersonaStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	personaStats, err := h.getPersonaStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	userCount := 0
	if h.users != nil {
		userCount, err = h.users.Count(r.Context())
		if err != nil {
			core.InternalServerError(w, err)
			return
		}
	}

	core.OK(w, SystemStatsResponse{
		Personas: personaStats,
		Users:    UserStats{Total: userCount},
		Database: h.getDBStats(),
		Redis:    h.getRedisStats(),
		Runtime:  collectRuntimeStats(),
	})
}

func (h *Handler) GetPersonaStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.getPersonaStats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, collectRuntimeStats())
}

func (h *Handler) getPersonaStats(
	ctx context.Context,
) (*PersonaStatsResponse, error) {
	if h.personas == nil {
		return nil, nil
	}

	stats, err := h.personas.Stats(ctx)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int, len(stats.ByType))
	for t, n := range stats.ByType {
		byType[string(t)] = n
	}

	return &PersonaStatsResponse{
		ByType:   byType,
		Unlocked: stats.Unlocked,
		Previews: stats.Previews,
	}, nil
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

func collectRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

type SystemStatsResponse struct {
	Personas *PersonaStatsResponse `json:"personas,omitempty"`
	Users    UserStats             `json:"users"`
	Database *DBPoolStats          `json:"database,omitempty"`
	Redis    *RedisPoolStats       `json:"redis,omitempty"`
	Runtime  RuntimeStats          `json:"runtime"`
}

type PersonaStatsResponse struct {
	ByType   map[string]int `json:"by_type"`
	Unlocked int            `json:"unlocked"`
	Previews int            `json:"previews"`
}

type UserStats struct {
	Total int `json:"total"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
