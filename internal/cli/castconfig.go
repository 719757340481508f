package cli

import (
	"fmt"
	"path/filepath"

	"github.com/siftgo/sift/cast"
	"github.com/siftgo/sift/filter"
)

// loadCastConfig reads a cast config, picking the parser by file extension.
func loadCastConfig(path string) (*cast.Config, error) {
	switch filepath.Ext(path) {
	case ".cue":
		return cast.LoadCUEFile(path)
	case ".yaml", ".yml":
		return cast.LoadYAMLFile(path)
	default:
		return nil, fmt.Errorf("unsupported cast config extension %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}
}

// applyCast remaps criteria through the config at path, when one is given.
func applyCast(path string, filters []filter.Node, sorts []filter.Sort) ([]filter.Node, []filter.Sort, error) {
	if path == "" {
		return filters, sorts, nil
	}
	cfg, err := loadCastConfig(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg.Apply(filters, sorts)
}
