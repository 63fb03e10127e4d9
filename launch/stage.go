package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StageMods copies every file of src that dst lacks. Files already present in
// dst are left alone, and nothing in dst is ever deleted. It returns the number
// of files copied; onCopy, if set, is called after each copy.
func StageMods(ctx context.Context, src, dst string, onCopy func(name string, done, total int)) (int, error) {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		if _, err := os.Lstat(filepath.Join(dst, name)); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return 0, err
		}
		pending = append(pending, name)
	}

	copied := 0
	for _, name := range pending {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if err := copyFile(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return copied, fmt.Errorf("copy %s: %w", name, err)
		}
		copied++
		if onCopy != nil {
			onCopy(name, copied, len(pending))
		}
	}
	return copied, nil
}

// copyFile writes through a hidden temporary file so an interrupted copy never
// leaves a truncated file that later stagings would skip.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.part")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	n, err := io.Copy(tmp, srcFile)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n != info.Size() {
		err = fmt.Errorf("short copy: %d of %d bytes", n, info.Size())
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
