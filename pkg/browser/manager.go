package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flagpin/pkg/logging"
)

type tab struct {
	id   string
	page playwright.Page
}

// SessionManager owns the Playwright driver, one browser and its tabs.
type SessionManager struct {
	mu          sync.RWMutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	attached    bool
	tabs        []*tab
	timeout     float64
	initialized bool
	logger      *logging.Logger
}

// NewSessionManager creates a new session manager.
func NewSessionManager(logger *logging.Logger) *SessionManager {
	return &SessionManager{
		timeout: DefaultTimeout,
		logger:  logger,
	}
}

// Initialize installs and starts the Playwright driver.
// This must be called before Start.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would interleave with CLI output.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Start launches Chromium, or attaches to a running browser when
// opts.CDPURL is set.
func (m *SessionManager) Start(opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return fmt.Errorf("session manager not initialized")
	}
	if m.browser != nil {
		return fmt.Errorf("browser session already started")
	}
	if opts.Timeout > 0 {
		m.timeout = opts.Timeout
	}

	var (
		browser playwright.Browser
		err     error
	)
	if opts.CDPURL != "" {
		browser, err = m.playwright.Chromium.ConnectOverCDP(opts.CDPURL)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", opts.CDPURL, err)
		}
		m.attached = true
	} else {
		browser, err = m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
		})
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	// Attached browsers already have a default context with the user's tabs.
	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		bctx, err = browser.NewContext()
		if err != nil {
			browser.Close()
			return fmt.Errorf("failed to create context: %w", err)
		}
	}

	m.browser = browser
	m.context = bctx
	m.logger.Infof("browser started (attached=%t)", m.attached)
	return nil
}

// Tabs returns every open page, assigning ids to newly discovered ones.
func (m *SessionManager) Tabs() ([]TabInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil, ErrNotStarted
	}
	m.refreshLocked()

	infos := make([]TabInfo, 0, len(m.tabs))
	for _, t := range m.tabs {
		title, _ := t.page.Title()
		infos = append(infos, TabInfo{ID: t.id, URL: t.page.URL(), Title: title})
	}
	return infos, nil
}

// Tab returns the current description of one tab.
func (m *SessionManager) Tab(id string) (TabInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookupLocked(id)
	if err != nil {
		return TabInfo{}, err
	}
	title, _ := t.page.Title()
	return TabInfo{ID: t.id, URL: t.page.URL(), Title: title}, nil
}

// Page returns the page behind a tab id. It implements PageResolver.
func (m *SessionManager) Page(id string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return t.page, nil
}

// Open creates a new tab and navigates it to url.
func (m *SessionManager) Open(url string) (TabInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.context == nil {
		return TabInfo{}, ErrNotStarted
	}

	page, err := m.context.NewPage()
	if err != nil {
		return TabInfo{}, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(m.timeout)

	if _, err := page.Goto(url); err != nil {
		_ = page.Close()
		return TabInfo{}, fmt.Errorf("navigation failed: %w", err)
	}

	t := m.trackLocked(page)
	title, _ := page.Title()
	return TabInfo{ID: t.id, URL: page.URL(), Title: title}, nil
}

// Shutdown closes or detaches from the browser and stops Playwright. Tabs of
// an attached browser are left open.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if !m.attached {
			for _, t := range m.tabs {
				_ = t.page.Close() // Ignore errors, continue cleanup
			}
		}
		_ = m.browser.Close()
		m.browser = nil
		m.context = nil
		m.tabs = nil
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}

func (m *SessionManager) lookupLocked(id string) (*tab, error) {
	if m.browser == nil {
		return nil, ErrNotStarted
	}
	m.refreshLocked()
	for _, t := range m.tabs {
		if t.id == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tab %q not found", id)
}

// refreshLocked drops closed pages and starts tracking new ones.
func (m *SessionManager) refreshLocked() {
	live := m.tabs[:0]
	for _, t := range m.tabs {
		if !t.page.IsClosed() {
			live = append(live, t)
		}
	}
	m.tabs = live

	for _, bctx := range m.browser.Contexts() {
		for _, page := range bctx.Pages() {
			if !m.trackedLocked(page) {
				m.trackLocked(page)
			}
		}
	}
}

func (m *SessionManager) trackedLocked(page playwright.Page) bool {
	for _, t := range m.tabs {
		if t.page == page {
			return true
		}
	}
	return false
}

func (m *SessionManager) trackLocked(page playwright.Page) *tab {
	t := &tab{id: uuid.NewString(), page: page}
	m.tabs = append(m.tabs, t)
	m.logger.Debugf("tracking tab %s (%s)", t.id, page.URL())
	return t
}
