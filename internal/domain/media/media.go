// Package media sniffs input files by content and derives output paths.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

func Detect(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect type of %s: %w", path, err)
	}
	return mt.String(), nil
}

func IsVideo(path string) (bool, error) {
	t, err := Detect(path)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(t, "video/"), nil
}

func IsMP4(path string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("detect type of %s: %w", path, err)
	}
	return mt.Is("video/mp4"), nil
}

// VideoFiles lists the regular files of dir whose content is video, sorted
// by name. Symlinks are followed; subdirectories are not descended into.
// Entries that cannot be stat'ed or sniffed are passed to skipped, which may
// be nil, and left out.
func VideoFiles(dir string, skipped func(path string, err error)) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	skip := func(p string, err error) {
		if skipped != nil {
			skipped(p, err)
		}
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		fi, err := os.Stat(p)
		if err != nil {
			skip(p, err)
			continue
		}
		if !fi.Mode().IsRegular() {
			continue
		}
		ok, err := IsVideo(p)
		if err != nil {
			skip(p, err)
			continue
		}
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// AutomaticPath derives an output path next to input: "talk.mp4" becomes
// "talk_cut.mp4", or "talk_cut.txt" for a timestamps only run.
func AutomaticPath(input string, tsonly bool) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if tsonly {
		ext = ".txt"
	}
	if ext == "" {
		ext = ".mp4"
	}
	return stem + "_cut" + ext
}
