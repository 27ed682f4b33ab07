package page

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// AssetsPrefix is the URL path the static assets are served under.
const AssetsPrefix = "/assets/"

// Assets returns the static files referenced by the templates, rooted at the assets directory.
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")

	if err != nil {
		panic(err)
	}

	return sub
}

// AssetPaths lists the URL paths of every static asset.
func AssetPaths() []string {
	var paths []string

	err := fs.WalkDir(Assets(), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			paths = append(paths, path.Join(AssetsPrefix, name))
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	return paths
}
