package commands

import (
	"fmt"
	"strings"

	"github.com/marmos91/xdrproxy/internal/demo/tstprog"
	"github.com/marmos91/xdrproxy/pkg/config"
	"github.com/marmos91/xdrproxy/pkg/xlate/schema"
)

// loadSchemaStore compiles the configured schema files plus the built-in
// demo program when enabled.
func loadSchemaStore(cfg *config.Config) (*schema.Store, error) {
	var extra []schema.Source
	if cfg.Schemas.DemoEnabled() {
		src, err := tstprog.Source()
		if err != nil {
			return nil, err
		}
		extra = append(extra, src)
	}

	store, err := schema.NewFileStore(cfg.Schemas.Paths, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}
	return store, nil
}

func schemaSourceDescription(cfg *config.Config) string {
	parts := append([]string(nil), cfg.Schemas.Paths...)
	if cfg.Schemas.DemoEnabled() {
		parts = append(parts, "builtin:"+tstprog.Name)
	}
	return strings.Join(parts, ",")
}
