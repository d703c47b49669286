// Package content renders outreach content with the Liquid template
// language, so sequence steps and plan messages can personalize on contact
// data ({{ name }}, {{ business_name }}, ...).
package content

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// TemplateService renders Liquid templates with parse caching.
type TemplateService struct {
	engine *liquid.Engine
	cache  sync.Map // template source to *liquid.Template
}

// NewTemplateService builds an engine with the engine's custom filters
// registered.
func NewTemplateService() *TemplateService {
	engine := liquid.NewEngine()

	// {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value, fallback any) any {
		s, ok := value.(string)
		if value == nil || (ok && strings.TrimSpace(s) == "") {
			return fallback
		}
		return value
	})

	// {{ name | first_word }} turns "Jane Doe" into "Jane"
	engine.RegisterFilter("first_word", func(value string) string {
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return ""
		}
		return fields[0]
	})

	return &TemplateService{engine: engine}
}

// Render parses (or reuses) the template and renders it against binding.
// Missing variables render empty, matching production-send behavior.
func (ts *TemplateService) Render(source string, binding map[string]any) (string, error) {
	var tmpl *liquid.Template
	if cached, ok := ts.cache.Load(source); ok {
		tmpl = cached.(*liquid.Template)
	} else {
		parsed, err := ts.engine.ParseString(source)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		ts.cache.Store(source, parsed)
		tmpl = parsed
	}

	out, err := tmpl.Render(binding)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return string(out), nil
}
