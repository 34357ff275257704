// ABOUTME: Config package documentation
// ABOUTME: Describes the load order from defaults to flags
// Package config loads application settings and resolves them into a session.
//
// Settings are layered: Default, then the YAML file, then RESONANCE_* environment
// variables, then command-line flags applied by main. Resolve combines the result
// with a preset from the embedded table (or a user preset of the same name).
package config
