// Package server implements the core presence-and-broadcast functionality
// of the Banter chat service.
//
// The implementation is organized into specialized files for the presence
// registry, event routing, hub management, clients, configuration, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
