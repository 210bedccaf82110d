// Package source materializes image sources as local directories.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"spritec/archive"
	"spritec/misc"
)

// Resolved is a directory with images ready for compilation. Cleanup removes
// whatever was materialized on disk and is safe to call on the zero value.
type Resolved struct {
	Dir     string
	cleanup string
}

func (r *Resolved) Cleanup() {
	if len(r.cleanup) != 0 {
		os.RemoveAll(r.cleanup)
	}
}

// Resolve turns image source specification into a directory on disk. Plain
// directories are used as is, zip archives are unpacked into a temporary
// directory. Remote locations are not supported.
func Resolve(src string, cp encoding.Encoding, log *zap.Logger) (*Resolved, error) {
	if isRemote(src) {
		return nil, fmt.Errorf("remote image sources are not supported: %s", src)
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to access image source: %w", err)
	}

	if info.IsDir() {
		return &Resolved{Dir: abs}, nil
	}

	if !strings.EqualFold(filepath.Ext(abs), ".zip") {
		return nil, fmt.Errorf("image source must be a directory or a zip archive: %s", src)
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-src-")
	if err != nil {
		return nil, err
	}

	var decode archive.NameDecoder
	if cp != nil {
		decode = func(name string) (string, error) {
			decoded, err := cp.NewDecoder().String(name)
			if err != nil {
				n, _ := ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", name), zap.Error(err))
				return name, nil
			}
			return decoded, nil
		}
	}

	if err := archive.Extract(abs, dir, decode); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("unable to unpack image source: %w", err)
	}

	log.Debug("Image source unpacked", zap.String("archive", abs), zap.String("dir", dir))
	return &Resolved{Dir: dir, cleanup: dir}, nil
}

func isRemote(src string) bool {
	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(strings.ToLower(src), scheme) {
			return true
		}
	}
	return false
}
