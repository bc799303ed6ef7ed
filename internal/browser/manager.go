package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Manager owns the single, process-wide, headed browser context the agent
// drives. Unlike the teacher's Pool (internal/tools/browser/pool.go in
// haasonsaas/nexus), which hands out many interchangeable short-lived
// instances for concurrent tool calls, the browser agent loop is strictly
// serial (spec.md §5) and needs exactly one persistent-profile context
// shared across the whole run, so there is no acquire/release pool here —
// only a singleton with a mutex guarding page bookkeeping.
type Manager struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext

	mu           sync.Mutex
	activePage   playwright.Page
}

// Config configures the persistent browser profile.
type Config struct {
	// UserDataDir is where the browser persists cookies/profile across runs.
	UserDataDir string

	// ViewportWidth/Height default to 1280x900 per spec.
	ViewportWidth  int
	ViewportHeight int
}

// DefaultConfig returns the spec's defaults: 1280x900 viewport.
func DefaultConfig(userDataDir string) Config {
	return Config{
		UserDataDir:    userDataDir,
		ViewportWidth:  1280,
		ViewportHeight: 900,
	}
}

// NewManager installs (if needed) and launches a headed, persistent
// Chromium context with anti-automation flags disabled, and opens the
// first page.
func NewManager(cfg Config) (*Manager, error) {
	if err := playwright.Install(&playwright.RunOptions{Verbose: false}); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	width, height := cfg.ViewportWidth, cfg.ViewportHeight
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 900
	}

	browserContext, err := pw.Chromium.LaunchPersistentContext(cfg.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(false),
		Viewport: &playwright.Size{Width: width, Height: height},
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--no-default-browser-check",
		},
		IgnoreDefaultArgs: []string{"--enable-automation"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch persistent context: %w", err)
	}

	pages := browserContext.Pages()
	var page playwright.Page
	if len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserContext.NewPage()
		if err != nil {
			_ = browserContext.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("open initial page: %w", err)
		}
	}

	return &Manager{
		pw:         pw,
		context:    browserContext,
		activePage: page,
	}, nil
}

// ActivePage returns the most-recently-active, not-closed page, per
// spec.md §4.6 step 1. If the previously active page was closed (by
// site-initiated navigation or a closed tab) it falls back to the last
// open page in the context, or reports ErrNoPages if none remain.
func (m *Manager) ActivePage() (playwright.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activePage != nil && !m.activePage.IsClosed() {
		return m.activePage, nil
	}

	pages := m.context.Pages()
	for i := len(pages) - 1; i >= 0; i-- {
		if !pages[i].IsClosed() {
			m.activePage = pages[i]
			return m.activePage, nil
		}
	}
	return nil, ErrNoPages
}

// CloseExtraTabs closes every page except the active one (the page
// ActivePage last returned). A tab opened after that page was chosen, for
// example by a link that opens a new window, is closed rather than adopted
// as the active page.
func (m *Manager) CloseExtraTabs(ctx context.Context) {
	m.mu.Lock()
	active := m.activePage
	m.mu.Unlock()

	for _, page := range m.context.Pages() {
		if page == active || page.IsClosed() {
			continue
		}
		_ = page.Close()
	}
}

// Close tears down the browser context and stops the Playwright driver.
func (m *Manager) Close() error {
	if m.context != nil {
		if err := m.context.Close(); err != nil {
			return fmt.Errorf("close browser context: %w", err)
		}
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			return fmt.Errorf("stop playwright: %w", err)
		}
	}
	return nil
}
