// Package web embeds the page templates and static assets served by the
// FORU server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static asset file system (style.css, foru.js and the
// flower artwork under flowers/).
func StaticFS() fs.FS {
	return mustSub("static")
}

// TemplatesFS returns the HTML templates file system.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

// mustSub panics on a missing directory, which can only be a build defect.
func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded %s directory: %v", dir, err))
	}
	return sub
}
