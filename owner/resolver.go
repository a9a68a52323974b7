// Package owner picks the CRM user a new deal is assigned to.
package owner

import (
	"context"
	"log"
	"strconv"
	"strings"

	"portal_leads/crm"
	"portal_leads/models"
)

type Kind int

const (
	KindReference Kind = iota
	KindPhone
)

func (k Kind) String() string {
	if k == KindPhone {
		return "phone"
	}
	return "reference"
}

// Directory is the CRM surface the resolver queries.
type Directory interface {
	FindUser(ctx context.Context, filter crm.Filter) (int, bool, error)
	// FindListing returns nil, nil when no listing carries the reference.
	FindListing(ctx context.Context, reference string) (*models.Listing, error)
}

type Resolver struct {
	dir         Directory
	defaultID   int
	excludedIDs []int
}

func NewResolver(dir Directory, defaultID int, excludedIDs []int) *Resolver {
	return &Resolver{dir: dir, defaultID: defaultID, excludedIDs: excludedIDs}
}

func (r *Resolver) DefaultID() int {
	return r.defaultID
}

// Resolve never fails: lookup misses and CRM errors fall back to the default owner.
func (r *Resolver) Resolve(ctx context.Context, key string, kind Kind) int {
	key = strings.TrimSpace(key)
	if key == "" {
		return r.defaultID
	}

	switch kind {
	case KindPhone:
		if id, ok := r.findUser(ctx, crm.Filter{"%PERSONAL_MOBILE": key}); ok {
			return id
		}
		return r.defaultID
	case KindReference:
		return r.byReference(ctx, key)
	}
	return r.defaultID
}

func (r *Resolver) byReference(ctx context.Context, ref string) int {
	listing, err := r.dir.FindListing(ctx, ref)
	if err != nil {
		log.Printf("[warn] owner: listing %s: %v", ref, err)
		return r.defaultID
	}
	if listing == nil {
		log.Printf("[info] owner: no listing with reference %s", ref)
		return r.defaultID
	}

	if id, err := strconv.Atoi(strings.TrimSpace(listing.OwnerID.String())); err == nil && id != 0 {
		return id
	}

	if name := strings.TrimSpace(listing.OwnerName); name != "" {
		for _, filter := range NameFilters(name) {
			if id, ok := r.findUser(ctx, filter); ok {
				return id
			}
		}
		if id, ok := r.findUser(ctx, crm.Filter{"%FIND": name}); ok {
			return id
		}
	}

	if email := strings.TrimSpace(listing.AgentEmail); email != "" {
		if id, ok := r.findUser(ctx, crm.Filter{"EMAIL": email}); ok {
			return id
		}
	} else {
		log.Printf("[info] owner: no agent email on listing %s", ref)
	}

	return r.defaultID
}

func (r *Resolver) findUser(ctx context.Context, filter crm.Filter) (int, bool) {
	f := make(crm.Filter, len(filter)+2)
	for k, v := range filter {
		f[k] = v
	}
	f["ACTIVE"] = "Y"
	if len(r.excludedIDs) > 0 {
		f["!ID"] = r.excludedIDs
	}

	id, ok, err := r.dir.FindUser(ctx, f)
	if err != nil {
		log.Printf("[warn] owner: user lookup %v: %v", filter, err)
		return 0, false
	}
	return id, ok && id > 0
}

// NameFilters splits a full name at every word boundary, earliest split first:
// "Mary Ann Smith" gives {Mary, Ann Smith} then {Mary Ann, Smith}.
func NameFilters(fullName string) []crm.Filter {
	parts := strings.Fields(fullName)
	var filters []crm.Filter
	for i := 1; i < len(parts); i++ {
		filters = append(filters, crm.Filter{
			"%NAME":      strings.Join(parts[:i], " "),
			"%LAST_NAME": strings.Join(parts[i:], " "),
		})
	}
	return filters
}
