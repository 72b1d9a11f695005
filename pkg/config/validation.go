package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their config key and adds the pow2 tag.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Zero passes so that omitempty-style "unset" values need no extra tag.
	_ = v.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		n := fl.Field().Uint()
		return n&(n-1) == 0
	})

	return v
}

// Validate checks struct tags first, then the rules that span sections.
// Log levels are accepted in either case; ApplyDefaults normalizes them.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Check.WriteChanges && cfg.Device.Type == "s3" {
		return fmt.Errorf("check.write_changes: s3 devices are read-only")
	}

	if cfg.Device.Burst != 0 && cfg.Device.MaxReadsPerSecond == 0 {
		return fmt.Errorf("device.burst: requires max_reads_per_second")
	}

	return nil
}

// formatValidationError reports the first failure as "key: rule (value)".
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	key := strings.TrimPrefix(e.Namespace(), "Config.")
	if e.Param() != "" {
		return fmt.Errorf("%s: failed '%s=%s' (value: %v)", key, e.Tag(), e.Param(), e.Value())
	}
	return fmt.Errorf("%s: failed '%s' (value: %v)", key, e.Tag(), e.Value())
}
