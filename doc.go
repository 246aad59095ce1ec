// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fileserver builds and runs a static file server from layered
// configuration.
//
// [Run] merges the built in defaults with the given sources, decodes them
// into a [Config], builds the server with [Build] and serves until the
// context is cancelled or the process receives SIGINT or SIGTERM:
//
//	err := fileserver.Run(
//		context.Background(),
//		config.FromEnv("FILESERVER_"),
//		config.Map{"root": "/srv/www"},
//	)
package fileserver
