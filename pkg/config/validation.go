package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Bootstrap group names must be unique and non-empty
	names := make(map[string]bool)
	for i, group := range cfg.Bootstrap.Groups {
		if group == "" {
			return fmt.Errorf("bootstrap.groups[%d]: group name cannot be empty", i)
		}
		if names[group] {
			return fmt.Errorf("bootstrap.groups[%d]: duplicate group name %q", i, group)
		}
		names[group] = true
	}

	if cfg.Broker.Enabled && cfg.Broker.URL == "" {
		return fmt.Errorf("broker: url is required when the broker is enabled")
	}

	if cfg.Bootstrap.Admin.Password != "" && cfg.Bootstrap.Admin.Login == "" {
		return fmt.Errorf("bootstrap.admin: login is required when a password is set")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
