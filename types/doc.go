// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package types provides core types used across the roundwise service.
This package has ZERO dependencies on other roundwise packages to avoid
circular imports. All other packages should import types from here.

It defines the deliberation data model: expert agents, the five stage
payload variants, conversation messages and the structured error type
shared by the pipeline and the HTTP layer.
*/
package types
