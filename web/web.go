// Package web embeds the daemon's static pages.
package web

import "embed"

//go:embed static
var Assets embed.FS
