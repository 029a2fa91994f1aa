// Package metadata defines the data model for plugin metadata lists:
// tag directives, messages, file references, cleaning data, locations,
// the per-plugin metadata bundle, and the List container they live in,
// plus the standard error types shared across the module.
package metadata
