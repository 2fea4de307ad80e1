// Package llm provides the reasoning-service adapter used when deterministic
// matching cannot decide an ingredient. It supports the OpenAI Responses API,
// OpenAI chat completions and Anthropic messages, with rate limiting, retries
// and a batch prompt/parse layer for ingredient linking.
package llm
