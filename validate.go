package tether

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/html"
)

// validate is the shared validator instance.
var validate = validator.New()

// ValidateClass checks that a class carries a usable discriminator and a
// factory.
func ValidateClass(c Class) error {
	if err := validate.Struct(c); err != nil {
		return &ConfigurationError{Name: c.Name, Err: fmt.Errorf("%w: %v", ErrInvalidClass, err)}
	}
	if strings.TrimSpace(c.Name) == "" {
		return &ConfigurationError{Name: c.Name, Err: fmt.Errorf("%w: blank name", ErrInvalidClass)}
	}
	return nil
}

// Validate checks the tagged positions of a root against a class list before
// activation. It fails when nothing is tagged, when a class is unusable, or
// when a tagged discriminator has no class; the first offending name in
// document order is reported.
func Validate(positions []*html.Node, markerAttr string, classes []Class) error {
	if len(positions) == 0 {
		return &ConfigurationError{Err: ErrNoPositions}
	}
	known := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if err := ValidateClass(c); err != nil {
			return err
		}
		known[c.Name] = struct{}{}
	}
	for _, p := range positions {
		name, _ := attr(p, markerAttr)
		if _, ok := known[name]; !ok {
			return &ConfigurationError{Name: name, Err: ErrUnregistered}
		}
	}
	return nil
}
