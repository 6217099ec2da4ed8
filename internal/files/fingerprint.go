package files

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"strconv"
	"time"

	"hpipulse/internal/cache"
	"hpipulse/internal/dataset"
)

// Signature is the stat-level identity of one declared source.
type Signature struct {
	Source  string    `json:"source"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Missing bool      `json:"missing,omitempty"`
}

// Fingerprint derives the cache key of a source list from file metadata.
// No file contents are read. A source that cannot be stat'ed contributes a
// missing marker, so it appearing later changes the key.
func Fingerprint(fsys fs.FS, sources []dataset.Source) (cache.SourceSetKey, []Signature) {
	h := sha256.New()
	signatures := make([]Signature, 0, len(sources))

	for _, src := range sources {
		sig := Signature{Source: src.Name(), Path: src.Path}
		if info, err := fs.Stat(fsys, src.Path); err == nil {
			sig.Size = info.Size()
			sig.ModTime = info.ModTime().UTC()
		} else {
			sig.Missing = true
		}
		signatures = append(signatures, sig)

		writeField(h, src.Name())
		writeField(h, src.Path)
		writeField(h, src.CollisionToken())
		if sig.Missing {
			writeField(h, "missing")
		} else {
			writeField(h, strconv.FormatInt(sig.Size, 10))
			writeField(h, strconv.FormatInt(sig.ModTime.UnixNano(), 10))
		}
	}

	return cache.SourceSetKey(hex.EncodeToString(h.Sum(nil))), signatures
}

func writeField(w io.Writer, s string) {
	_, _ = w.Write([]byte(strconv.Itoa(len(s))))
	_, _ = w.Write([]byte{':'})
	_, _ = w.Write([]byte(s))
}
