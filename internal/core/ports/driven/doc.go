// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the ask pipeline to function:
//
//   - EmbeddingService: Generates the query vector
//   - VectorStore: Stores and searches passage vectors (Chroma, SQLite, memory)
//   - GenerationService: Produces answers and relevance judgements
//   - TokenCounter: Counts and truncates tokens for context budgeting
//   - RuleStore: Supplies the heuristic rule set and prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
