package appfs

import "embed"

// FS holds the SQL migrations (one directory per database engine) and the static assets.
//
//go:embed migrations all:assets
var FS embed.FS
