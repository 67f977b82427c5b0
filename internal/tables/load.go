package tables

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Load reads a tables override file and layers it over Default. The YAML has a
// top-level "tables" key. Lists present in the file replace the defaults and
// maps are merged entry by entry. An empty path returns Default.
func Load(path string) (*Tables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: read %s", path)
	}

	wrapper := struct {
		Tables *Tables `yaml:"tables"`
	}{Tables: t}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "tables: parse")
	}

	t.prepare()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
