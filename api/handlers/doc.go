// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package handlers implements the HTTP handlers of the roundwise API:
conversation lifecycle and stage advancement, model configuration and
health. All responses use the uniform envelope from common.go.
*/
package handlers
