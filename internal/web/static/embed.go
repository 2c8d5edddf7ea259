// Package static embeds the kiosk page served at the web root.
package static

import (
	"embed"
	"io/fs"
)

//go:embed dist
var distFS embed.FS

// Assets returns the embedded files rooted at the dist directory.
func Assets() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		// dist is embedded at build time
		panic(err)
	}
	return sub
}
