// Package factory builds the ordered LLM provider chain and the cached
// fallback caller from configuration. It imports every provider sub-package,
// which keeps the llm package itself free of import cycles.
package factory
