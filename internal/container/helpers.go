package container

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
)

func parseStats(data []byte) (*Stats, error) {
	var raw dockercontainer.StatsResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	stats := &Stats{
		MemoryUsed:  raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}
	if stats.MemoryLimit > 0 {
		stats.MemoryPercent = float64(stats.MemoryUsed) / float64(stats.MemoryLimit) * 100.0
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if cpuDelta > 0 && sysDelta > 0 {
		cpus := float64(raw.CPUStats.OnlineCPUs)
		if cpus == 0 {
			cpus = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
		}
		if cpus == 0 {
			cpus = 1
		}
		stats.CPUPercent = cpuDelta / sysDelta * cpus * 100.0
	}

	return stats, nil
}

// FormatUptime renders how long a container has been up in the largest
// sensible unit, e.g. "3d 4h" or "12m".
func FormatUptime(created time.Time, now time.Time) string {
	if created.IsZero() || now.Before(created) {
		return "-"
	}
	d := now.Sub(created)

	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

// FormatPorts renders published ports as "host→container" pairs joined
// with commas, or "-" when nothing is published.
func FormatPorts(ports []PortMapping) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, fmt.Sprintf("%d→%d", p.HostPort, p.ContainerPort))
	}
	return strings.Join(parts, ", ")
}

// InternalPortFromLabels scans routing labels for the load balancer
// server port. Returns "" when the container carries no routing labels.
func InternalPortFromLabels(labels map[string]string) string {
	for key, value := range labels {
		if strings.HasPrefix(key, "traefik.http.services.") &&
			strings.HasSuffix(key, ".loadbalancer.server.port") {
			return value
		}
	}
	return ""
}
