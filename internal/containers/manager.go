// Package containers is the Container Manager: it creates, execs into,
// resizes, and destroys the short-lived sandbox containers attackers land
// in, against the real Docker Engine API.
package containers

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/rs/zerolog/log"

	"github.com/websoft9/honeyshell/internal/config"
)

// Manager owns the single process-wide Docker client handle; all methods
// are safe for concurrent use across sessions.
type Manager struct {
	cli *client.Client
	cfg *config.Config
}

func New(cfg *config.Config) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Manager{cli: cli, cfg: cfg}, nil
}

// EnsureNetwork creates the isolated, non-egress bridge network used by
// every sandbox container if it does not already exist.
func (m *Manager) EnsureNetwork(ctx context.Context) error {
	_, err := m.cli.NetworkInspect(ctx, m.cfg.HoneypotNetwork, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect network %s: %w", m.cfg.HoneypotNetwork, err)
	}

	_, err = m.cli.NetworkCreate(ctx, m.cfg.HoneypotNetwork, network.CreateOptions{
		Driver:   "bridge",
		Internal: true,
	})
	if err != nil {
		return fmt.Errorf("create network %s: %w", m.cfg.HoneypotNetwork, err)
	}
	return nil
}

// Create runs the configured honeypot image with a sleep-forever entrypoint,
// labeled with sessionID, and arms a TTL timer that force-destroys it
// regardless of bridge state.
func (m *Manager) Create(ctx context.Context, sessionID, shortID string) (containerID string, err error) {
	period := int64(100000)
	quota := int64(m.cfg.ContainerCPULimit * 100000)

	memBytes, err := parseMemoryLimit(m.cfg.ContainerMemoryLimit)
	if err != nil {
		return "", fmt.Errorf("parse memory limit: %w", err)
	}

	extraHosts := make([]string, 0, len(m.cfg.DecoyHosts))
	for _, d := range m.cfg.DecoyHosts {
		extraHosts = append(extraHosts, d.Hostname+":"+d.Address)
	}

	resp, err := m.cli.ContainerCreate(ctx,
		&container.Config{
			Image:     m.cfg.HoneypotImage,
			Cmd:       []string{"sleep", "infinity"},
			Tty:       false,
			OpenStdin: true,
			Hostname:  m.cfg.HoneypotHostname,
			Labels:    map[string]string{"honeyshell.session_id": sessionID},
		},
		&container.HostConfig{
			Resources: container.Resources{
				CPUPeriod:  period,
				CPUQuota:   quota,
				Memory:     memBytes,
				MemorySwap: memBytes,
			},
			ExtraHosts:  extraHosts,
			NetworkMode: container.NetworkMode(m.cfg.HoneypotNetwork),
			Privileged:  false,
		},
		nil, nil,
		"honeyshell-"+shortID,
	)
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("container start: %w", err)
	}

	m.armTTL(resp.ID, sessionID)
	return resp.ID, nil
}

func (m *Manager) armTTL(containerID, sessionID string) {
	ttl := time.Duration(m.cfg.ContainerTTLMinutes) * time.Minute
	time.AfterFunc(ttl, func() {
		log.Warn().Str("container_id", containerID).Str("session_id", sessionID).Msg("container TTL expired, destroying")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Destroy(ctx, containerID); err != nil {
			log.Error().Err(err).Str("container_id", containerID).Msg("TTL destroy failed")
		}
	})
}

// Destroy stops and force-removes the container. Not-found is treated as
// success so it races safely against the orchestrator's own cleanup and
// against itself (idempotent).
func (m *Manager) Destroy(ctx context.Context, containerID string) error {
	timeout := 5
	if err := m.cli.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil && !errdefs.IsNotFound(err) {
		log.Warn().Err(err).Str("container_id", containerID).Msg("container stop failed, attempting remove anyway")
	}
	if err := m.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("container remove: %w", err)
	}
	return nil
}

func parseMemoryLimit(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty memory limit")
	}
	mult := int64(1)
	unit := s[len(s)-1]
	numPart := s
	switch unit {
	case 'k', 'K':
		mult = 1024
		numPart = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		numPart = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		numPart = s[:len(s)-1]
	}
	var n int64
	if _, err := fmt.Sscanf(numPart, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", s, err)
	}
	return n * mult, nil
}
