// ABOUTME: Embeds HTML templates and help docs into the binary using go:embed
// ABOUTME: Provides templateFS for loading templates at startup

package webadmin

import "embed"

//go:embed templates/*.html docs/*.md
var templateFS embed.FS
