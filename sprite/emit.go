package sprite

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Emit writes data to path atomically: the bytes land in a uniquely named
// temp file in the destination directory which is synced, closed and then
// renamed over the target. On any failure the temp file is removed and the
// target is left untouched, so output is all-or-nothing.
func Emit(path string, data []byte, perm os.FileMode) (rerr error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &EmitError{Path: path, Err: err}
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return &EmitError{Path: path, Err: err}
	}
	defer func() {
		if rerr != nil {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return &EmitError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &EmitError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &EmitError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &EmitError{Path: path, Err: err}
	}
	return nil
}
