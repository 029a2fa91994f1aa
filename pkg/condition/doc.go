// Package condition parses and evaluates the condition strings attached
// to plugin metadata.
//
// Conditions are boolean expressions over the installed state of a
// game:
//
//	file("Foo.esp") and not active("Bar.esp")
//	checksum("Foo.esp", 3C54E2A9) or version("Foo.esp", "1.2", >=)
//	many("Foo.*\.esp")
//
// Evaluation goes through a Cache so that repeated queries against an
// unchanged install are answered without touching the disk. The cache
// must be explicitly invalidated whenever the install may have changed.
package condition
