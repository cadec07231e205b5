package referrals

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var documentExts = []string{".pdf", ".txt", ".md"}

// CollectDocuments expands directories in paths to the referral documents
// they contain, non-recursively and in lexical order. Files are passed
// through as given.
func CollectDocuments(paths []string) ([]string, error) {
	var out []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		for _, e := range entries {
			if e.Type()&fs.ModeType != 0 {
				continue
			}
			if slices.Contains(documentExts, strings.ToLower(filepath.Ext(e.Name()))) {
				out = append(out, filepath.Join(p, e.Name()))
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoDocuments
	}
	return out, nil
}
