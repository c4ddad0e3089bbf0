package sapi

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// changeSetTemplate is the scaffold written by CreateChangeSet.
const changeSetTemplate = `-- UP
-- Write your UP migration here


-- DOWN
-- Write your DOWN migration here (for rollback)

`

// CreateChangeSet scaffolds a new change-set file named
// <YYYY_MM_DD_HH_MM>_<slug>.sql under the directory of cfg.Pattern,
// creating the directory if needed.  name is kebab-cased into the slug.
// It returns the created filename.
func CreateChangeSet(cfg Config, name string) (string, error) {
	slug := kebabCase(name)
	if slug == "" {
		return "", fmt.Errorf("change-set name is required")
	}

	dir := filepath.Dir(cfg.Pattern)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory %s: %w", dir, err)
	}

	timestamp := time.Now().Format("2006_01_02_15_04")
	filename := fmt.Sprintf("%s_%s.sql", timestamp, slug)
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("change-set file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(changeSetTemplate), 0644); err != nil {
		return "", fmt.Errorf("failed to create change-set file %s: %w", path, err)
	}
	return path, nil
}

// kebabCase converts a string to kebab-case.
func kebabCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	re := regexp.MustCompile("[^a-z0-9]+")
	s = re.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CreateChangeSet scaffolds a new change-set using the Runner's
// configuration.
func (r *Runner) CreateChangeSet(name string) (string, error) {
	return CreateChangeSet(r.cfg, name)
}
