package workflow

import (
	"log/slog"
	"sync"
	"time"

	"rosterforge/internal/audiopatch"
	"rosterforge/internal/boneinject"
	"rosterforge/internal/config"
	"rosterforge/internal/logging"
	"rosterforge/internal/mapping"
	"rosterforge/internal/queue"
)

// Manager coordinates bundle completion across the worker pool.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	registry *mapping.Registry
	bones    *boneinject.BoneSet
	patcher  *audiopatch.Patcher

	heartbeat *HeartbeatMonitor

	mu      sync.Mutex
	lastErr error
}

// NewManager constructs a workflow manager, loading the mapping registry
// and the canonical bone set from the configured paths.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry, err := mapping.Load(mapping.Paths{
		SlotTemplate:  cfg.Mappings.SlotTemplatePath,
		AudioAssetMap: cfg.Mappings.AudioAssetMapPath,
		BfwavGroups:   cfg.Mappings.BfwavGroupsPath,
	})
	if err != nil {
		return nil, err
	}
	for _, warning := range registry.Warnings {
		logger.Warn("mapping registry warning", logging.String("detail", warning))
	}
	bones, err := boneinject.LoadBoneSet(cfg.Paths.BoneDir)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		registry: registry,
		bones:    bones,
		patcher:  audiopatch.New(cfg.Paths.DonorAudioDir, registry, logger),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}, nil
}

// Registry exposes the loaded mapping registry for read-only use.
func (m *Manager) Registry() *mapping.Registry {
	return m.registry
}

// LastError returns the most recent bundle-level error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

func (m *Manager) workerCount() int {
	n := m.cfg.Workflow.Workers
	if n < 1 {
		n = 1
	}
	return n
}
