// Package server exposes the wizard over HTTP: state snapshots, field and
// navigation intents, step runs and a websocket stream of state changes
package server
