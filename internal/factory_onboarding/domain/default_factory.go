package domain

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_factory.yaml
var defaultFactoryYAML []byte

var (
	defaultFactoryOnce sync.Once
	defaultFactory     Factory
)

// DefaultFactory returns a copy of the fixed fallback factory. The fixture is
// parsed and validated once; every caller gets its own copy.
func DefaultFactory() Factory {
	defaultFactoryOnce.Do(func() {
		f, err := parseDefaultFactory(defaultFactoryYAML)
		if err != nil {
			panic(err)
		}
		defaultFactory = f
	})
	return defaultFactory.Clone()
}

func parseDefaultFactory(b []byte) (Factory, error) {
	var f Factory
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Factory{}, fmt.Errorf("parse default factory: %w", err)
	}
	if err := Validate(f, DefaultIDGrammar()); err != nil {
		return Factory{}, fmt.Errorf("default factory: %w", err)
	}
	return f.Clone(), nil
}
