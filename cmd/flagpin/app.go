package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/entrhq/flagpin/pkg/browser"
	"github.com/entrhq/flagpin/pkg/config"
	"github.com/entrhq/flagpin/pkg/engine"
	"github.com/entrhq/flagpin/pkg/logging"
	"github.com/entrhq/flagpin/pkg/metrics"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath  string
	tabSelector string
	cdpURL      string
	headless    bool
	openURL     string
	jsonOutput  bool
	metricsFile string

	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	browser  *browser.SessionManager
	engine   *engine.Engine
}

// offlineTabs is used by commands that never touch a page.
type offlineTabs struct{}

func (offlineTabs) Tab(id string) (browser.TabInfo, error) {
	return browser.TabInfo{}, fmt.Errorf("no browser session")
}

// setup loads configuration and builds the engine. With withBrowser the
// Playwright session is started too.
func (a *app) setup(withBrowser bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.cdpURL != "" {
		cfg.Browser.CDPURL = a.cdpURL
	}
	if a.headless {
		cfg.Browser.Headless = true
	}
	a.cfg = cfg

	if cfg.Logging.Directory != "" {
		logging.SetDirectory(cfg.Logging.Directory)
	}
	// A fallback logger is returned alongside the error; keep going with it.
	logger, err := logging.NewLogger("flagpin")
	if err != nil {
		warn("file logging unavailable: %v", err)
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	m, err := metrics.New(metrics.Config{Namespace: cfg.Metrics.Namespace, Registry: a.registry})
	if err != nil {
		return err
	}

	if !withBrowser {
		a.engine, err = engine.Build(cfg, offlineTabs{}, nil, logger, m)
		return err
	}

	a.browser = browser.NewSessionManager(logger.With("browser"))
	if err := a.browser.Initialize(); err != nil {
		return err
	}
	err = a.browser.Start(browser.Options{
		CDPURL:   cfg.Browser.CDPURL,
		Headless: cfg.Browser.Headless,
		Timeout:  float64(cfg.Browser.Timeout.Milliseconds()),
	})
	if err != nil {
		return err
	}
	if a.openURL != "" {
		if _, err := a.browser.Open(a.openURL); err != nil {
			return err
		}
	}

	transport := browser.NewTransport(a.browser, logger.With("transport"))
	a.engine, err = engine.Build(cfg, a.browser, transport, logger, m)
	return err
}

// run sets the app up, calls fn and always releases what setup acquired.
func (a *app) run(withBrowser bool, fn func() error) (err error) {
	defer func() {
		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := a.setup(withBrowser); err != nil {
		return err
	}
	return fn()
}

// close releases the browser and flushes metrics.
func (a *app) close() error {
	var firstErr error
	if a.browser != nil {
		if err := a.browser.Shutdown(); err != nil {
			firstErr = err
		}
		a.browser = nil
	}
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
	return firstErr
}

// tab resolves --tab to a tab id. An empty selector picks the tab opened with
// --open, or else the first http(s) tab.
func (a *app) tab() (string, error) {
	tabs, err := a.browser.Tabs()
	if err != nil {
		return "", err
	}
	if len(tabs) == 0 {
		return "", fmt.Errorf("no open tabs; use --open <url>")
	}

	sel := strings.TrimSpace(a.tabSelector)
	if sel == "" && a.openURL != "" {
		return tabs[len(tabs)-1].ID, nil
	}
	return selectTab(tabs, sel)
}

func selectTab(tabs []browser.TabInfo, sel string) (string, error) {
	if sel == "" {
		for _, t := range tabs {
			if strings.HasPrefix(t.URL, "http://") || strings.HasPrefix(t.URL, "https://") {
				return t.ID, nil
			}
		}
		return tabs[0].ID, nil
	}

	if i, err := strconv.Atoi(sel); err == nil {
		if i < 0 || i >= len(tabs) {
			return "", fmt.Errorf("tab index %d out of range (0-%d)", i, len(tabs)-1)
		}
		return tabs[i].ID, nil
	}
	for _, t := range tabs {
		if t.ID == sel {
			return t.ID, nil
		}
	}
	for _, t := range tabs {
		if strings.Contains(t.URL, sel) {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("no tab matches %q", sel)
}
