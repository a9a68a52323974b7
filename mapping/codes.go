package mapping

import (
	"strings"

	"portal_leads/config"
	"portal_leads/models"
)

// Codes is a read-only copy of the CRM code tables.
type Codes struct {
	category      string
	sources       map[models.Platform]string
	collection    map[Key]string
	modeOfEnquiry map[models.LeadType]string
	propertyTypes map[string]string
}

func NewCodes(t *config.CodeTables) *Codes {
	if t == nil {
		t = config.DefaultCodeTables()
	}

	c := &Codes{
		category:      t.CategoryID,
		sources:       make(map[models.Platform]string, len(t.Sources)),
		collection:    make(map[Key]string),
		modeOfEnquiry: make(map[models.LeadType]string, len(t.ModeOfEnquiry)),
		propertyTypes: make(map[string]string, len(t.PropertyType)),
	}
	for p, code := range t.Sources {
		c.sources[models.Platform(strings.ToLower(p))] = code
	}
	for p, byType := range t.CollectionSource {
		for lt, code := range byType {
			c.collection[Key{Platform: models.Platform(strings.ToLower(p)), Type: models.LeadType(strings.ToLower(lt))}] = code
		}
	}
	for lt, code := range t.ModeOfEnquiry {
		c.modeOfEnquiry[models.LeadType(strings.ToLower(lt))] = code
	}
	for name, code := range t.PropertyType {
		c.propertyTypes[normalizeType(name)] = code
	}
	return c
}

func (c *Codes) Category() string {
	return c.category
}

func (c *Codes) Source(p models.Platform) string {
	return c.sources[p]
}

func (c *Codes) CollectionSource(k Key) string {
	return c.collection[k]
}

func (c *Codes) ModeOfEnquiry(t models.LeadType) string {
	return c.modeOfEnquiry[t]
}

// PropertyType maps free-text property types ("Apartment", "half floor").
func (c *Codes) PropertyType(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	code, ok := c.propertyTypes[normalizeType(text)]
	return code, ok
}

func normalizeType(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
