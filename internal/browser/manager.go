package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/neboloop/promptpulse/internal/logging"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDriverFactory replaces the driver constructor (used by tests).
func WithDriverFactory(f func(Config) (Driver, error)) ManagerOption {
	return func(m *Manager) {
		m.newDriver = f
	}
}

// Manager owns the browser driver and the registry of open tabs.
type Manager struct {
	mu        sync.Mutex
	cfg       Config
	newDriver func(Config) (Driver, error)
	driver    Driver
	tabs      map[string]Tab
	logger    *slog.Logger
}

// NewManager creates a manager. The driver is created lazily.
func NewManager(cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:       cfg,
		newDriver: NewDriver,
		tabs:      make(map[string]Tab),
		logger:    logging.With("browser"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open opens url in a new tab and registers it.
func (m *Manager) Open(ctx context.Context, url string) (Tab, error) {
	d, err := m.ensureDriver()
	if err != nil {
		return nil, err
	}

	tab, err := d.OpenTab(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	tab = newAuditTab(tab, m.logger)

	m.mu.Lock()
	m.tabs[tab.ID()] = tab
	m.mu.Unlock()

	m.logger.Info("tab opened", "tab", tab.ID(), "driver", d.Name())
	return tab, nil
}

// Tab returns an open tab by ID.
func (m *Manager) Tab(id string) (Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTabNotFound)
	}
	return tab, nil
}

// CloseTab closes and unregisters a tab.
func (m *Manager) CloseTab(ctx context.Context, id string) error {
	m.mu.Lock()
	tab, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTabNotFound)
	}
	if err := tab.Close(ctx); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	m.logger.Info("tab closed", "tab", id)
	return nil
}

// Tabs lists the IDs of open tabs.
func (m *Manager) Tabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reconfigure swaps the config. A running driver is only replaced when no
// tabs are open; otherwise the change applies after the next Stop.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg == m.cfg {
		return
	}
	m.cfg = cfg
	if m.driver != nil && len(m.tabs) == 0 {
		if err := m.driver.Close(); err != nil {
			m.logger.Warn("closing browser for reconfigure failed", "error", err)
		}
		m.driver = nil
	}
}

// Stop closes every tab and the browser.
func (m *Manager) Stop() error {
	m.mu.Lock()
	tabs := m.tabs
	m.tabs = make(map[string]Tab)
	d := m.driver
	m.driver = nil
	m.mu.Unlock()

	for id, tab := range tabs {
		if err := tab.Close(context.Background()); err != nil {
			m.logger.Debug("close tab on stop", "tab", id, "error", err)
		}
	}
	if d != nil {
		return d.Close()
	}
	return nil
}

func (m *Manager) ensureDriver() (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver != nil {
		return m.driver, nil
	}
	d, err := m.newDriver(m.cfg)
	if err != nil {
		return nil, err
	}
	m.driver = d
	return d, nil
}
