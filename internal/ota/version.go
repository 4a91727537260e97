package ota

import (
	"fmt"
	"strings"
	"time"
)

// VersionLayout is the format of firmware versions: the build time.
const VersionLayout = "2006-01-02 15:04:05"

// ParseVersion parses a version, ignoring a trailing ".bin" as servers
// report image file names.
func ParseVersion(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ".bin"))
	t, err := time.Parse(VersionLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return t, nil
}

// JudgeVersion reports whether remote is strictly newer than build. Either
// side failing to parse means no update.
func JudgeVersion(remote, build string) bool {
	newer, err := judge(remote, build)
	return err == nil && newer
}

func judge(remote, build string) (bool, error) {
	b, err := ParseVersion(build)
	if err != nil {
		return false, fmt.Errorf("build: %w", err)
	}
	r, err := ParseVersion(remote)
	if err != nil {
		return false, fmt.Errorf("remote: %w", err)
	}
	return r.After(b), nil
}
