package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func encodeSidecar(s Sidecar) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode sidecar: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writePair writes the image and its sidecar. Each file is staged in a temp
// file, synced and closed, then renamed into place. If anything fails, both
// targets are removed.
func writePair(imagePath string, image, meta []byte) error {
	sidecarPath := SidecarName(imagePath)

	if err := writeFileSync(imagePath, image); err != nil {
		return err
	}
	if err := writeFileSync(sidecarPath, meta); err != nil {
		os.Remove(imagePath)
		return err
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
