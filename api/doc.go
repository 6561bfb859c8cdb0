// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package api defines the request and response DTOs of the roundwise HTTP
surface. Handlers live in the handlers subpackage.
*/
package api
