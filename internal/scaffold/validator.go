package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/credscan/internal/config"
)

// CheckExisting checks if any default config file already exists in dir
// Returns an error if one does, nil otherwise
func CheckExisting(dir string) error {
	var existingFiles []string

	for _, name := range config.DefaultFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			existingFiles = append(existingFiles, name)
		}
	}

	if len(existingFiles) > 0 {
		errMsg := "config already initialized\n\nFound existing"
		if len(existingFiles) == 1 {
			errMsg += fmt.Sprintf(": %s", existingFiles[0])
		} else {
			errMsg += " files:\n"
			for _, file := range existingFiles {
				errMsg += fmt.Sprintf("  - %s\n", file)
			}
		}
		errMsg += "\nUse 'credscan init --force' to reinitialize (this will overwrite existing configuration)"

		return fmt.Errorf("%s", errMsg)
	}

	return nil
}
