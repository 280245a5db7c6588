// file: pkg/diskimg/validation.go

package diskimg

import (
	"os"
	"strings"
)

// Image name suffixes that select a drive model when the image file
// does not exist yet.
const (
	SuffixTPDD1 = ".pdd1"
	SuffixTPDD2 = ".pdd2"
)

// DetectGeometry picks the drive geometry for an image file. An
// existing image is judged by its exact size, which wins over fallback;
// a size matching neither model is rejected. A missing or empty image
// is judged by its name suffix, and keeps fallback when the suffix says
// nothing.
func DetectGeometry(path string, fallback Geometry) (Geometry, error) {
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		switch info.Size() {
		case int64(TPDD1.ImageLen()):
			return TPDD1, nil
		case int64(TPDD2.ImageLen()):
			return TPDD2, nil
		}
		return Geometry{}, ErrGeometry
	}
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, SuffixTPDD1):
		return TPDD1, nil
	case strings.HasSuffix(name, SuffixTPDD2):
		return TPDD2, nil
	}
	return fallback, nil
}
