// Package assets embeds the dashboard's stylesheet and chart script.
package assets

import "embed"

//go:embed style.css dashboard.js
var FS embed.FS
