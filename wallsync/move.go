package wallsync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// quarantineFile moves path under errorDir, keeping its location relative to
// root (errorDir/<country>/<file>). An existing target gets a timestamp suffix.
func quarantineFile(root, path, errorDir string) (string, error) {
	if strings.TrimSpace(errorDir) == "" {
		return "", fmt.Errorf("error dir is empty")
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	dst := filepath.Join(errorDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(dst)
		dst = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(dst, ext), time.Now().UnixNano(), ext)
	}

	if err := os.Rename(path, dst); err == nil {
		return dst, nil
	}

	// Rename fails across devices; copy then remove.
	if err := copyFile(path, dst); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
