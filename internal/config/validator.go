package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// builtinRouteNames are the routes of the default route table. Navigation
// targets may name these or any configured route.
var builtinRouteNames = []string{
	"home", "courses", "about", "login", "register", "course-detail",
	"lesson-watch", "create-course", "course-edit", "profile",
	"instructor-dashboard", "become-instructor", "admin-applications",
	"favorites",
}

// RegisterCustomValidators registers the coursekit validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	if err := v.RegisterValidation("route_path", validateRoutePath); err != nil {
		return fmt.Errorf("failed to register route_path validator: %w", err)
	}
	return nil
}

// validateDuration accepts a positive time.ParseDuration string.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// validateRoutePath accepts "/" or an absolute path without empty segments,
// where ":name" segments are parameters.
func validateRoutePath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "/" {
		return true
	}
	if !strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(strings.TrimSuffix(p[1:], "/"), "/") {
		if seg == "" || seg == ":" {
			return false
		}
	}
	return true
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages if validation fails.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateRouteNames(); err != nil {
		return err
	}
	return c.validateNavigationTargets()
}

// validateRouteNames ensures configured route names are unique.
func (c *Config) validateRouteNames() error {
	seen := make(map[string]struct{}, len(c.Routes))
	for i, r := range c.Routes {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("routes[%d]: duplicate route name: %s", i, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// validateNavigationTargets ensures every navigation target names a known
// route.
func (c *Config) validateNavigationTargets() error {
	known := slices.Clone(builtinRouteNames)
	for _, r := range c.Routes {
		known = append(known, r.Name)
	}

	targets := map[string]string{
		"navigation.login_route":   c.Navigation.LoginRoute,
		"navigation.denied_route":  c.Navigation.DeniedRoute,
		"navigation.landing_route": c.Navigation.LandingRoute,
	}
	for i, name := range c.Navigation.EntryRoutes {
		targets[fmt.Sprintf("navigation.entry_routes[%d]", i)] = name
	}
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if !slices.Contains(known, targets[k]) {
			return fmt.Errorf("%s: references unknown route: %s", k, targets[k])
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as \"10s\"", field)
	case "route_path":
		return fmt.Sprintf("%s must be an absolute path such as \"/courses/:id\"", field)
	case "alpha":
		return fmt.Sprintf("%s must contain letters only", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
