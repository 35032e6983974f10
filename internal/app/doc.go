// Package app provides the application service layer.
//
// Manager owns the single upstream session and serializes its lifecycle
// (load, unload, reload, init). Gateway passes host commands through to the
// live session and fails fast when none exists. Both depend on domain
// interfaces, not concrete adapters.
package app
