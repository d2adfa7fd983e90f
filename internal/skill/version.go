// Package skill reads and writes the installed skill's version file.
package skill

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/raphi011/skillsync/internal/storage"
)

// DefaultVersion is assumed when no version file exists yet.
const DefaultVersion = "0.0.0"

// VersionFile is the skill version file. Fields other than version and
// updated_at are kept verbatim across rewrites.
type VersionFile struct {
	Version   string
	UpdatedAt *time.Time

	extra map[string]json.RawMessage
}

// ReadVersion loads the version file at path. A missing file yields
// DefaultVersion.
func ReadVersion(path string) (*VersionFile, error) {
	raw := make(map[string]json.RawMessage)
	if err := storage.LoadJSON(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &VersionFile{Version: DefaultVersion, extra: raw}, nil
		}
		return nil, fmt.Errorf("read version file: %w", err)
	}

	vf := &VersionFile{extra: raw}
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &vf.Version); err != nil {
			return nil, fmt.Errorf("read version file: version: %w", err)
		}
	}
	if v, ok := raw["updated_at"]; ok {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			vf.UpdatedAt = &t
		}
	}
	if vf.Version == "" {
		vf.Version = DefaultVersion
	}
	return vf, nil
}

// MarshalJSON writes version and updated_at over the preserved fields.
func (vf *VersionFile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(vf.extra)+2)
	for k, v := range vf.extra {
		out[k] = v
	}
	out["version"] = vf.Version
	if vf.UpdatedAt != nil {
		out["updated_at"] = vf.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// WriteVersion sets version and updated_at and atomically rewrites the file
// at path.
func WriteVersion(path string, vf *VersionFile, version string, now time.Time) error {
	vf.Version = version
	t := now.UTC()
	vf.UpdatedAt = &t
	data, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return fmt.Errorf("write version file: %w", err)
	}
	if err := storage.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write version file: %w", err)
	}
	return nil
}

// BumpPatch returns version with its patch component incremented
// ("2.0.74" -> "2.0.75"). A leading "v" is preserved.
func BumpPatch(version string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}
	next := v.IncPatch()
	if len(version) > 0 && version[0] == 'v' {
		return "v" + next.String(), nil
	}
	return next.String(), nil
}

// IsNewer reports whether candidate is a strictly greater version than
// current. Unparsable versions are never newer.
func IsNewer(candidate, current string) bool {
	c, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	return c.GreaterThan(cur)
}

// AtLeast reports whether candidate is greater than or equal to current.
func AtLeast(candidate, current string) bool {
	c, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	return !c.LessThan(cur)
}
