package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"ecostim/internal/errors"
)

// LoadNameOverrides reads an item_id -> display name table. The file is a
// YAML mapping such as:
//
//	12: "Økologisk skyr"
//	40: "Rugbrød"
//
// An empty path yields no overrides.
func LoadNameOverrides(path string) (map[int]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read name overrides %s", path)
	}
	out := map[int]string{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to parse name overrides %s", path))
	}
	for id, name := range out {
		if id <= 0 || name == "" {
			return nil, errors.ConfigInvalid("name overrides need positive item ids and non-empty names")
		}
	}
	return out, nil
}
