package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CodeTables holds the CRM enum codes a deal is built from. It is loaded once
// from YAML and handed to the field mapper.
type CodeTables struct {
	CategoryID       string                       `yaml:"category_id"`
	Sources          map[string]string            `yaml:"sources"`
	CollectionSource map[string]map[string]string `yaml:"collection_source"`
	ModeOfEnquiry    map[string]string            `yaml:"mode_of_enquiry"`
	PropertyType     map[string]string            `yaml:"property_type"`
}

func DefaultCodeTables() *CodeTables {
	return &CodeTables{
		CategoryID: "0",
		Sources: map[string]string{
			"bayut":    "BAYUT",
			"dubizzle": "DUBIZZLE",
		},
		CollectionSource: map[string]map[string]string{
			"bayut": {
				"call":     "41293",
				"email":    "41294",
				"whatsapp": "41295",
			},
			"dubizzle": {
				"call":     "41296",
				"email":    "41297",
				"whatsapp": "41298",
			},
		},
		ModeOfEnquiry: map[string]string{
			"whatsapp": "41290",
			"email":    "41291",
			"call":     "41292",
		},
		PropertyType: map[string]string{
			"Apartment":  "41300",
			"Villa":      "41301",
			"Townhouse":  "41302",
			"Office":     "41303",
			"Plot":       "41304",
			"Building":   "41305",
			"Half Floor": "41306",
			"Full Floor": "41307",
		},
	}
}

// LoadCodes reads code tables from path. A missing file yields the defaults;
// tables present in the file replace the default table wholesale.
func LoadCodes(path string) (*CodeTables, error) {
	codes := DefaultCodeTables()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return codes, nil
		}
		return nil, err
	}

	var file CodeTables
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if file.CategoryID != "" {
		codes.CategoryID = file.CategoryID
	}
	if len(file.Sources) > 0 {
		codes.Sources = file.Sources
	}
	if len(file.CollectionSource) > 0 {
		codes.CollectionSource = file.CollectionSource
	}
	if len(file.ModeOfEnquiry) > 0 {
		codes.ModeOfEnquiry = file.ModeOfEnquiry
	}
	if len(file.PropertyType) > 0 {
		codes.PropertyType = file.PropertyType
	}

	return codes, nil
}
