// Package domain defines the core business entities for AFIQ.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Passage: A retrievable unit of instruction text with hierarchy metadata
//   - ParagraphID: A dotted paragraph identifier with ancestry semantics
//   - Answer: The response envelope returned by the ask pipeline
//   - RuleSet: Externally supplied heuristic configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
