package sapi

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Section sentinels inside a change-set file.
const (
	upMarker   = "-- UP"
	downMarker = "-- DOWN"
)

// identifierPattern enforces the sortable timestamp prefix every
// change-set filename must carry: YYYY_MM_DD_HH_MM followed by a slug.
var identifierPattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{2}_\d{2}_[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ChangeSet represents a single change-set file.
type ChangeSet struct {
	// Identifier is the base filename without the .sql extension.
	// Identifiers order lexically; the timestamp prefix makes lexical
	// order chronological order.
	Identifier string

	// Filename is the path to the change-set file.
	Filename string

	// Forward is the SQL executed by Apply.
	Forward string

	// Backward is the SQL executed by Rollback.  May be empty.
	Backward string

	// Checksum is the MD5 checksum of the raw file content, recorded in
	// the ledger so later runs can detect edits to applied files.
	Checksum string
}

// HasBackward reports whether the change-set defines a DOWN section.
func (c *ChangeSet) HasBackward() bool {
	return c.Backward != ""
}

// splitSections divides file content into forward and backward SQL.
// Everything before the first "-- DOWN" line is the forward script (with
// a leading "-- UP" header stripped); everything after it is backward.
func splitSections(content string) (forward, backward string) {
	if idx := strings.Index(content, downMarker); idx >= 0 {
		forward = content[:idx]
		backward = strings.TrimSpace(content[idx+len(downMarker):])
	} else {
		forward = content
	}
	forward = strings.Replace(forward, upMarker, "", 1)
	forward = strings.TrimSpace(forward)
	return forward, backward
}

// checksum computes the MD5 checksum of content.
func checksum(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// loadChangeSet reads and parses a single change-set file.
func loadChangeSet(filename string) (ChangeSet, error) {
	base := filepath.Base(filename)
	identifier := strings.TrimSuffix(base, filepath.Ext(base))
	if !identifierPattern.MatchString(identifier) {
		return ChangeSet{}, fmt.Errorf("%w: %s: filename must be <timestamp>_<slug>.sql", ErrMalformedChangeSet, base)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return ChangeSet{}, err
	}
	forward, backward := splitSections(string(data))
	if forward == "" {
		return ChangeSet{}, fmt.Errorf("%w: %s: empty forward section", ErrMalformedChangeSet, base)
	}
	return ChangeSet{
		Identifier: identifier,
		Filename:   filename,
		Forward:    forward,
		Backward:   backward,
		Checksum:   checksum(string(data)),
	}, nil
}

// LoadChangeSets scans for change-set files matching cfg.Pattern and
// returns them sorted ascending by identifier.  Discovery never trusts
// directory iteration order.  Non-.sql files matched by the pattern are
// skipped; malformed files and duplicate identifiers fail the whole scan.
func LoadChangeSets(cfg Config) ([]ChangeSet, error) {
	files, err := filepath.Glob(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	var changeSets []ChangeSet
	seen := make(map[string]struct{})
	for _, file := range files {
		if filepath.Ext(file) != ".sql" {
			continue
		}
		cs, err := loadChangeSet(file)
		if err != nil {
			return nil, err
		}
		if _, exists := seen[cs.Identifier]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChangeSet, cs.Identifier)
		}
		seen[cs.Identifier] = struct{}{}
		changeSets = append(changeSets, cs)
	}
	sort.Slice(changeSets, func(i, j int) bool {
		return changeSets[i].Identifier < changeSets[j].Identifier
	})
	return changeSets, nil
}
