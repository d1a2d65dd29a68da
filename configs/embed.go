package configs

import _ "embed"

// DefaultSettings is the host settings file written on first start.
//
//go:embed settings.yaml
var DefaultSettings []byte
