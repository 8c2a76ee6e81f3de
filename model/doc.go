// Package model defines the opaque language-model capability consumed by
// agents: a blocking Complete call that turns a prompt into text and,
// optionally, structured tool calls. Provider adapters live in sub-packages
// (anthropic, openai); MockModel serves tests and examples.
package model
