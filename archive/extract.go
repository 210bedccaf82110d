package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// NameDecoder converts raw zip entry name to UTF-8. Entries already flagged
// as UTF-8 by the archiver are passed through without decoding.
type NameDecoder func(name string) (string, error)

// Extract unpacks every file in the archive under dstDir preserving relative
// layout. When decode is not nil it is applied to entry names which are not
// flagged as UTF-8 - old archivers routinely store names in a local codepage.
func Extract(archive, dstDir string, decode NameDecoder) error {
	return Walk(archive, "", func(_ string, f *zip.File) error {
		name := f.Name
		if decode != nil && f.NonUTF8 {
			decoded, err := decode(name)
			if err != nil {
				return err
			}
			name = decoded
			if !isSafePath(name) {
				return os.ErrInvalid
			}
		}

		dst := filepath.Join(dstDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
			return err
		}

		in, err := f.Open()
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
