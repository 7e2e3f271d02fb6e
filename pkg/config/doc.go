// Package config loads env-tagged configuration structs from the process
// environment, optionally seeded from a .env file. Each config type is
// parsed once and cached, so packages can load their own config without
// coordinating.
package config
