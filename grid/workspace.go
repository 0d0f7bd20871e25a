package grid

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Materialize creates dir if needed and copies each template into it under
// its base name. An existing dir is reused; files already in it survive
// unless a template of the same name overwrites them.
func Materialize(dir string, templates []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating workspace %s: %w", dir, err)
	}
	for _, src := range templates {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copying template %s: %w", src, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
