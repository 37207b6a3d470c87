// Package web embeds the board UI for single-binary distribution.
package web

import "embed"

// Assets contains the board UI under static/.
//
//go:embed all:static
var Assets embed.FS
