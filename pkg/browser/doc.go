// Package browser connects the override engine to real pages through
// Playwright.
//
// # Architecture
//
// The package is built around two pieces:
//
//  1. SessionManager: owns the Playwright driver and one browser, either
//     launched locally or attached to a running browser over its debugging
//     endpoint. Every open page is a tab with a stable id.
//  2. Transport: delivers protocol requests to a tab. INSTALL_AGENT evaluates
//     the page agent and registers it as an init script so it survives
//     reloads; every other action is handed to the installed agent.
//
// # Tab Lifecycle
//
// Tabs are discovered lazily. Each call to Tabs walks the browser contexts,
// assigns a fresh id to pages seen for the first time and forgets pages that
// have closed. Ids are never reused.
package browser
