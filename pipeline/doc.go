// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package pipeline implements the five-stage deliberation protocol:
gatekeeper normalization, parallel initial expert analysis, pairwise
rebuttal, notary synthesis and point-budget scoring.

Stage functions drive the model gateway and always complete with a
well-formed payload; upstream failures and unparseable output degrade
per agent with documented fallback values. The Coordinator reconstructs
stage inputs purely by scanning a conversation's append-only message log
(latest payload per stage type wins), enforces stage preconditions,
serializes concurrent advances of the same conversation and appends
exactly one assistant message per successful stage.
*/
package pipeline
