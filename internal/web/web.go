// Package web holds the map page and its static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html static
var files embed.FS

// IndexHTML returns the map page served at "/".
func IndexHTML() []byte {
	b, err := files.ReadFile("index.html")
	if err != nil {
		panic("web: embedded index.html missing: " + err.Error())
	}
	return b
}

// Static returns the asset tree rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic("web: embedded static dir missing: " + err.Error())
	}
	return sub
}
