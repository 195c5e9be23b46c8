package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const (
	metricsTimeout = 2 * time.Second
	gb             = 1024 * 1024 * 1024
)

// healthHandler reports the store's health and host metrics. It answers
// 503 when the store is down.
func (s *Server) healthHandler(c echo.Context) error {
	store := s.db.Health()

	status, code := "up", http.StatusOK
	if store["status"] != "up" {
		status, code = "down", http.StatusServiceUnavailable
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), metricsTimeout)
	defer cancel()

	return c.JSON(code, map[string]interface{}{
		"status":          status,
		"store":           store,
		"recommendations": map[string]interface{}{"configured": s.client.Configured(), "model": s.client.Model()},
		"runtime": map[string]interface{}{
			"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
			"start_time": s.startedAt.Format(time.RFC3339),
		},
		"system": systemMetrics(ctx),
	})
}

// systemMetrics collects what the host will tell us; a metric that cannot
// be read is left out.
func systemMetrics(ctx context.Context) map[string]interface{} {
	out := make(map[string]interface{})

	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/gb),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		out["cpu_usage"] = fmt.Sprintf("%.2f%%", pct[0])
	}

	if d, err := disk.UsageWithContext(ctx, "/"); err == nil {
		out["disk"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		}
	}

	if h, err := host.InfoWithContext(ctx); err == nil {
		out["host"] = map[string]interface{}{
			"os":       h.OS,
			"platform": h.Platform,
			"arch":     h.KernelArch,
			"hostname": h.Hostname,
		}
	}

	return out
}
