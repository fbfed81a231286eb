package primitives

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ReadFileSafe reads path, rejecting any component that could escape
// its containing directory (".." or an absolute leaf). Manifests
// reference file entries by path string pulled from JSON; this guards
// weaverpack's file reads against a crafted manifest trying to read
// outside its intended base directory.
func ReadFileSafe(p string) ([]byte, error) {
	dir := filepath.Dir(p)
	name := filepath.Base(p)
	return ReadFileFromDirSafe(dir, name)
}

// ReadFileFromDirSafe reads name from dir using an fs.FS rooted at
// dir, so a name like "../secret" or "/etc/passwd" cannot resolve
// outside it. name may contain slash-separated subdirectories, as
// WeaverPack manifest file entries commonly do.
func ReadFileFromDirSafe(dir, name string) ([]byte, error) {
	clean := path.Clean(filepath.ToSlash(name))
	if clean == "." || clean == "" || !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}
	return fs.ReadFile(os.DirFS(dir), clean)
}
