package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/xdrproxy/internal/bytesize"
)

// maxRecordSize is the largest reply the record-marking layer can carry.
const maxRecordSize = bytesize.ByteSize(1<<31 - 1)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the constraints that span several fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Server.Port == 0 {
		return fmt.Errorf("server.port: must be set")
	}
	if cfg.Proxy.MaxReplySize > maxRecordSize {
		return fmt.Errorf("proxy.max_reply_size: %s exceeds the record limit %s", cfg.Proxy.MaxReplySize, maxRecordSize)
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Proxy.CallTimeout >= cfg.Server.WriteTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed proxy.call_timeout (%s)",
			cfg.Server.WriteTimeout, cfg.Proxy.CallTimeout)
	}
	if cfg.Schemas.Watch && len(cfg.Schemas.Paths) == 0 {
		return fmt.Errorf("schemas.watch: requires schemas.paths")
	}
	if len(cfg.Schemas.Paths) == 0 && !cfg.Schemas.DemoEnabled() {
		return fmt.Errorf("schemas: no schema paths and the demo program is disabled")
	}
	return nil
}

// formatValidationErrors renders validator errors as "field: tag=param".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		msg := fmt.Sprintf("%s: failed %s", field, fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s (value %v)", msg, fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
