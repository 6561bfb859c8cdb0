// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package llm provides the model gateway: a uniform Provider interface over
chat-completion backends, a Gateway wrapper adding per-call timeouts, rate
limiting, token accounting and ordered all-settle fan-out, and best-effort
recovery of JSON objects from free-form model output.
*/
package llm
