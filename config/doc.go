// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config merges configuration from ordered sources and decodes
// the result into a struct.
//
// A [Source] applies key value pairs onto a [Store]. Sources are applied
// in the order given to [Read] so later sources override earlier ones:
//
//	m, err := config.Read(
//		config.Map{"addr": "127.0.0.1:8000"},
//		config.FromYaml(config.RenderTextTemplate(
//			config.NewFileReader(os.DirFS("."), "config.yaml"),
//			config.TemplateFunc("env", os.Getenv),
//		)),
//		config.FromEnv("APP_"),
//	)
//	if err != nil {
//		return err
//	}
//
//	var cfg Config
//	err = m.Unmarshal(&cfg)
//
// Struct fields are matched with the "config" tag. Strings are decoded
// into [encoding.TextUnmarshaler] implementations and [time.Duration]
// values, and other scalar mismatches are coerced where possible.
package config
