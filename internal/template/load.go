package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

type rawTemplate struct {
	Name           string    `yaml:"name"`
	DetectKeywords []string  `yaml:"detect_keywords"`
	Fields         yaml.Node `yaml:"fields"`
}

// Load reads a template document (JSON or YAML) from path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeTemplate, fmt.Sprintf("read %s", path), err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, common.NewAppError(common.CodeTemplate, fmt.Sprintf("parse %s", path), err)
	}
	return set, nil
}

// Parse decodes a template document. Template and field order follow the
// document, which is what the classifier tie-break relies on.
func Parse(data []byte) (*Set, error) {
	if err := validateDocument(data); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTemplate, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTemplate, err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", common.ErrTemplate)
	}

	var (
		templates []Template
		commonCfg *CommonFieldsConfig
	)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i].Value, doc.Content[i+1]
		switch key {
		case "templates":
			ts, err := decodeTemplates(val)
			if err != nil {
				return nil, err
			}
			templates = ts
		case "common_fields":
			if val.Tag == "!!null" {
				continue
			}
			var c CommonFieldsConfig
			if err := val.Decode(&c); err != nil {
				return nil, fmt.Errorf("%w: common_fields: %v", common.ErrTemplate, err)
			}
			commonCfg = &c
		}
	}
	return NewSet(templates, commonCfg), nil
}

func decodeTemplates(node *yaml.Node) ([]Template, error) {
	if node.Kind != yaml.MappingNode {
		return nil, nil
	}
	out := make([]Template, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		code := node.Content[i].Value
		var raw rawTemplate
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: template %q: %v", common.ErrTemplate, code, err)
		}
		t := Template{
			Code:           code,
			Name:           raw.Name,
			DetectKeywords: raw.DetectKeywords,
		}
		if raw.Fields.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(raw.Fields.Content); j += 2 {
				name := raw.Fields.Content[j].Value
				var spec FieldSpec
				if err := raw.Fields.Content[j+1].Decode(&spec); err != nil {
					return nil, fmt.Errorf("%w: template %q field %q: %v", common.ErrTemplate, code, name, err)
				}
				t.Fields = append(t.Fields, Field{Name: name, Spec: spec})
			}
		}
		out = append(out, t)
	}
	return out, nil
}
