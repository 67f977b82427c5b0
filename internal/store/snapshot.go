package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/model"
)

// Snapshot is an immutable in-memory view of the profile set. It is safe for
// concurrent readers; a new batch run produces a new Snapshot.
type Snapshot struct {
	profiles   []model.AreaProfile
	byZip      map[string]int
	businesses map[string][]model.Business
	cuisines   []string
}

// NewSnapshot indexes profiles by area code. Duplicate area codes keep the
// first occurrence. businesses may be nil.
func NewSnapshot(profiles []model.AreaProfile, businesses []model.Business) *Snapshot {
	s := &Snapshot{
		profiles: make([]model.AreaProfile, 0, len(profiles)),
		byZip:    make(map[string]int, len(profiles)),
	}
	seen := make(map[string]bool)
	for _, p := range profiles {
		if _, dup := s.byZip[p.Zip]; dup {
			continue
		}
		s.byZip[p.Zip] = len(s.profiles)
		s.profiles = append(s.profiles, p)
		for c := range p.ExistingCuisines {
			seen[c] = true
		}
		for _, g := range p.CuisineGaps {
			seen[g.Cuisine] = true
		}
	}
	sort.SliceStable(s.profiles, func(i, j int) bool { return s.profiles[i].Zip < s.profiles[j].Zip })
	for i, p := range s.profiles {
		s.byZip[p.Zip] = i
	}
	for c := range seen {
		s.cuisines = append(s.cuisines, c)
	}
	sort.Strings(s.cuisines)

	if len(businesses) > 0 {
		s.businesses = make(map[string][]model.Business)
		for _, b := range businesses {
			zip, ok := b.AreaCode()
			if !ok {
				continue
			}
			if _, known := s.byZip[zip]; !known {
				continue
			}
			s.businesses[zip] = append(s.businesses[zip], b)
		}
	}
	return s
}

// LoadSnapshot reads every profile from st and indexes them.
func LoadSnapshot(ctx context.Context, st Store, businesses []model.Business) (*Snapshot, error) {
	profiles, err := st.LoadProfiles(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "store: load snapshot")
	}
	return NewSnapshot(profiles, businesses), nil
}

// Get returns the profile for an area code.
func (s *Snapshot) Get(zip string) (model.AreaProfile, bool) {
	i, ok := s.byZip[zip]
	if !ok {
		return model.AreaProfile{}, false
	}
	return s.profiles[i], true
}

// Profiles returns every profile sorted by area code. Callers must not
// mutate the returned slice.
func (s *Snapshot) Profiles() []model.AreaProfile { return s.profiles }

// Len returns the number of profiles.
func (s *Snapshot) Len() int { return len(s.profiles) }

// Cuisines returns every cuisine that appears in any profile, sorted.
func (s *Snapshot) Cuisines() []string { return s.cuisines }

// Businesses returns the snapshot businesses recorded for an area code.
func (s *Snapshot) Businesses(zip string) []model.Business { return s.businesses[zip] }

// HasBusinesses reports whether business records were loaded.
func (s *Snapshot) HasBusinesses() bool { return s.businesses != nil }
