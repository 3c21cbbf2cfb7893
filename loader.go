package willowfx

import (
	"fmt"
	"io/fs"
)

// Load converts an authored effect and builds it into host under parent.
// Only malformed documents fail; broken nodes are skipped and logged.
func Load(data []byte, host Host, parent *Node, opts Options) (*Effect, error) {
	g, err := Convert(data, opts)
	if err != nil {
		return nil, fmt.Errorf("load effect: %w", err)
	}
	return NewEffect(g, host, parent, opts), nil
}

// LoadFile reads path from fsys and loads it. When opts.AssetFS is nil the
// effect's relative image URLs resolve against fsys.
func LoadFile(fsys fs.FS, path string, host Host, parent *Node, opts Options) (*Effect, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("load effect %s: %w", path, err)
	}
	if opts.AssetFS == nil {
		opts.AssetFS = fsys
	}
	e, err := Load(data, host, parent, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}
