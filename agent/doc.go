// Package agent provides concrete core.Agent implementations: ModelAgent
// drives a language model with an optional bounded tool-call loop, FuncAgent
// adapts a plain Go function. Both are safe for concurrent use.
package agent
