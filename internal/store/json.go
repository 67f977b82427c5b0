package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/model"
)

// JSONStore keeps all profiles in one JSON array file.
type JSONStore struct {
	path string
}

// NewJSON returns a JSONStore writing to path.
func NewJSON(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Migrate ensures the parent directory exists.
func (s *JSONStore) Migrate(_ context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "json store: create dir %s", dir)
	}
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// SaveProfiles writes the profiles to a temp file and renames it over the
// target so readers never see a partial file.
func (s *JSONStore) SaveProfiles(_ context.Context, _ string, profiles []model.AreaProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json store: marshal profiles")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".profiles-*.json")
	if err != nil {
		return eris.Wrap(err, "json store: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "json store: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "json store: close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return eris.Wrapf(err, "json store: rename to %s", s.path)
	}
	return nil
}

// LoadProfiles reads every profile from the file.
func (s *JSONStore) LoadProfiles(_ context.Context) ([]model.AreaProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "json store: read %s", s.path)
	}
	var profiles []model.AreaProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, eris.Wrap(err, "json store: unmarshal profiles")
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Zip < profiles[j].Zip })
	return profiles, nil
}

// GetProfile reads the file and returns one profile.
func (s *JSONStore) GetProfile(ctx context.Context, zip string) (*model.AreaProfile, error) {
	profiles, err := s.LoadProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return findProfile(profiles, zip)
}
