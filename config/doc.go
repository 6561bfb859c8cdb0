// Copyright (c) RoundWise Authors.
// Licensed under the MIT License.

/*
Package config loads service configuration with the precedence
defaults, then YAML file, then environment variables. A .env file, when
present, is folded into the environment before the override pass.
*/
package config
