// Package mapping turns raw portal leads into Bitrix deal fields.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portal_leads/config"
	"portal_leads/models"
	"portal_leads/owner"
)

var ErrNoMapper = errors.New("no mapper registered")

type Key struct {
	Platform models.Platform
	Type     models.LeadType
}

func (k Key) String() string {
	return string(k.Platform) + "/" + string(k.Type)
}

// OwnerResolver assigns deals to CRM users.
type OwnerResolver interface {
	Resolve(ctx context.Context, key string, kind owner.Kind) int
	DefaultID() int
}

// Rule builds the deal fields for one (platform, lead type) pair.
type Rule func(ctx context.Context, r *Registry, k Key, lead *models.Lead) models.DealFields

type Options struct {
	CallOwnerPolicy   string
	UnassignedOwnerID int
}

type Registry struct {
	codes  *Codes
	owners OwnerResolver
	opts   Options
	rules  map[Key]Rule
}

func NewRegistry(codes *Codes, owners OwnerResolver, opts Options) *Registry {
	if opts.CallOwnerPolicy == "" {
		opts.CallOwnerPolicy = config.CallOwnerKeep
	}
	return &Registry{
		codes:  codes,
		owners: owners,
		opts:   opts,
		rules: map[Key]Rule{
			{models.PlatformBayut, models.LeadTypeEmail}:       bayutEmail,
			{models.PlatformBayut, models.LeadTypeWhatsApp}:    bayutWhatsApp,
			{models.PlatformBayut, models.LeadTypeCall}:        callLog,
			{models.PlatformDubizzle, models.LeadTypeEmail}:    dubizzleEmail,
			{models.PlatformDubizzle, models.LeadTypeWhatsApp}: dubizzleWhatsApp,
			{models.PlatformDubizzle, models.LeadTypeCall}:     callLog,
		},
	}
}

// Validate reports every pair in platforms x types that has no rule.
func (r *Registry) Validate(platforms []models.Platform, types []models.LeadType) error {
	var missing []string
	for _, p := range platforms {
		for _, t := range types {
			k := Key{Platform: p, Type: t}
			if _, ok := r.rules[k]; !ok {
				missing = append(missing, k.String())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w for %s", ErrNoMapper, strings.Join(missing, ", "))
	}
	return nil
}

func (r *Registry) Map(ctx context.Context, k Key, lead *models.Lead) (models.DealFields, error) {
	rule, ok := r.rules[k]
	if !ok {
		return models.DealFields{}, fmt.Errorf("%w for %s", ErrNoMapper, k)
	}
	return rule(ctx, r, k, lead), nil
}

// header sets the fields every deal starts with, in Bitrix order.
func (r *Registry) header(k Key, title string, ownerID int) models.DealFields {
	f := models.NewDealFields()
	f.Set(FieldTitle, title)
	f.Set(FieldCategory, r.codes.Category())
	f.Set(FieldAssignedBy, ownerID)
	f.Set(FieldSource, r.codes.Source(k.Platform))
	return f
}

// channelCodes sets mode of enquiry and collection source.
func (r *Registry) channelCodes(f *models.DealFields, k Key) {
	f.SetIf(FieldModeOfEnquiry, r.codes.ModeOfEnquiry(k.Type))
	f.SetIf(FieldCollectionSource, r.codes.CollectionSource(k))
}

func (r *Registry) propertyType(f *models.DealFields, text string) {
	if code, ok := r.codes.PropertyType(text); ok {
		f.Set(FieldPropertyType, code)
	}
}

func (r *Registry) ownerByReference(ctx context.Context, ref string) int {
	if ref == "" {
		return r.owners.DefaultID()
	}
	return r.owners.Resolve(ctx, ref, owner.KindReference)
}

// callOwner resolves reference, then receiver number, then default.
func (r *Registry) callOwner(ctx context.Context, ref, receiver string) int {
	if ref != "" {
		return r.owners.Resolve(ctx, ref, owner.KindReference)
	}
	if receiver == "" {
		return r.owners.DefaultID()
	}

	id := r.owners.Resolve(ctx, receiver, owner.KindPhone)
	if r.opts.CallOwnerPolicy == config.CallOwnerSubstituteUnassigned &&
		r.opts.UnassignedOwnerID != 0 && id == r.opts.UnassignedOwnerID {
		return r.owners.DefaultID()
	}
	return id
}
