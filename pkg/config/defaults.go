// Package config provides shared configuration constants and the
// .vync.yaml project config for vync.
package config

// DefaultPort is the default port for `vync serve`.
const DefaultPort = 3000
