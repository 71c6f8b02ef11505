// Package embedding contains the driven.EmbeddingService adapters.
//
//   - openai: OpenAI and OpenAI-compatible APIs through langchaingo
//   - ollama: a local Ollama server through its /api/embed endpoint
//
// Adapters perform one backend call per EmbedBatch. Batching, retries,
// rate limiting and timeouts are applied by the core embedding generator.
package embedding
