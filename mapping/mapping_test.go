package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal_leads/config"
	"portal_leads/models"
	"portal_leads/owner"
)

const defaultOwner = 1593

type resolveCall struct {
	Key  string
	Kind owner.Kind
}

// stubOwners resolves from fixed tables and records every call.
type stubOwners struct {
	refs   map[string]int
	phones map[string]int
	calls  []resolveCall
}

func (s *stubOwners) Resolve(ctx context.Context, key string, kind owner.Kind) int {
	s.calls = append(s.calls, resolveCall{key, kind})
	table := s.refs
	if kind == owner.KindPhone {
		table = s.phones
	}
	if id, ok := table[key]; ok {
		return id
	}
	return defaultOwner
}

func (s *stubOwners) DefaultID() int {
	return defaultOwner
}

func newRegistry(owners *stubOwners, opts Options) *Registry {
	return NewRegistry(NewCodes(config.DefaultCodeTables()), owners, opts)
}

func decodeLead(t *testing.T, raw string) *models.Lead {
	t.Helper()
	var l models.Lead
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	return &l
}

func TestRegistryCoversEveryCombination(t *testing.T) {
	r := newRegistry(&stubOwners{}, Options{})
	require.NoError(t, r.Validate(models.Platforms, models.LeadTypes))

	for _, p := range models.Platforms {
		for _, lt := range models.LeadTypes {
			k := Key{Platform: p, Type: lt}
			f, err := r.Map(context.Background(), k, &models.Lead{LeadID: "1"})
			require.NoError(t, err, k.String())

			for _, key := range []string{FieldTitle, FieldCategory, FieldAssignedBy, FieldSource, FieldContactName, FieldComments, FieldModeOfEnquiry, FieldCollectionSource} {
				assert.True(t, f.Has(key), "%s missing %s", k, key)
			}
			assert.Equal(t, defaultOwner, f.Int(FieldAssignedBy), k.String())
		}
	}
}

func TestRegistryUnknownPair(t *testing.T) {
	r := newRegistry(&stubOwners{}, Options{})

	_, err := r.Map(context.Background(), Key{Platform: "propertyfinder", Type: models.LeadTypeEmail}, &models.Lead{})
	assert.True(t, errors.Is(err, ErrNoMapper))

	err = r.Validate([]models.Platform{"propertyfinder"}, []models.LeadType{models.LeadTypeCall})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "propertyfinder/call")
}

func TestBayutEmail(t *testing.T) {
	owners := &stubOwners{refs: map[string]int{"BY-100": 42}}
	r := newRegistry(owners, Options{})
	lead := decodeLead(t, `{
		"lead_id": 555,
		"client_name": "Ali Hassan",
		"client_email": "ali@example.com",
		"client_phone": 971501112233,
		"message": "Is it available?",
		"property_reference": "BY-100",
		"property_id": 8123456,
		"current_type": "Villa",
		"date_time": "2025-03-01 10:00:00"
	}`)

	f, err := r.Map(context.Background(), Key{models.PlatformBayut, models.LeadTypeEmail}, lead)
	require.NoError(t, err)

	assert.Equal(t, "Bayut - Email - BY-100", f.String(FieldTitle))
	assert.Equal(t, 42, f.Int(FieldAssignedBy))
	assert.Equal(t, "BAYUT", f.String(FieldSource))
	assert.Equal(t, "Ali Hassan", f.String(FieldContactName))
	assert.Equal(t, "ali@example.com", f.String(FieldEmail))
	assert.Equal(t, "971501112233", f.String(FieldPhone))
	assert.Equal(t, "Is it available?", f.String(FieldComments))
	assert.Equal(t, "https://www.bayut.com/property/details-8123456.html", f.String(FieldBayutLink))
	assert.Equal(t, "41291", f.String(FieldModeOfEnquiry))
	assert.Equal(t, "41301", f.String(FieldPropertyType))
	assert.Equal(t, "41294", f.String(FieldCollectionSource))
	assert.Equal(t, "BY-100", f.String(FieldPropertyReference))
	assert.Equal(t, "2025-03-01 10:00:00", f.String(FieldTimestamp))

	assert.Equal(t, []resolveCall{{"BY-100", owner.KindReference}}, owners.calls)
	assert.Equal(t, FieldTitle, f.Keys()[0])
}

func TestEmailWithoutReference(t *testing.T) {
	owners := &stubOwners{}
	r := newRegistry(owners, Options{})

	f, err := r.Map(context.Background(), Key{models.PlatformDubizzle, models.LeadTypeEmail}, &models.Lead{
		LeadID:      "9",
		CurrentType: "Castle",
	})
	require.NoError(t, err)

	assert.Equal(t, "Dubizzle - Email - No reference", f.String(FieldTitle))
	assert.Equal(t, "Unknown", f.String(FieldContactName))
	assert.Equal(t, defaultOwner, f.Int(FieldAssignedBy))
	assert.False(t, f.Has(FieldPropertyType), "unknown property types are omitted")
	assert.False(t, f.Has(FieldDubizzleLink), "no link without a property id")
	assert.False(t, f.Has(FieldReference))
	assert.Empty(t, owners.calls)
}

func TestDubizzleEmail(t *testing.T) {
	r := newRegistry(&stubOwners{refs: map[string]int{"DZ-7": 9}}, Options{})
	lead := decodeLead(t, `{
		"lead_id": "d-1",
		"client_name": "Sam",
		"property_reference": "DZ-7",
		"property_id": "77",
		"current_type": "half floor"
	}`)

	f, err := r.Map(context.Background(), Key{models.PlatformDubizzle, models.LeadTypeEmail}, lead)
	require.NoError(t, err)

	assert.Equal(t, "DUBIZZLE", f.String(FieldSource))
	assert.Equal(t, 9, f.Int(FieldAssignedBy))
	assert.Equal(t, "DZ-7", f.String(FieldReference))
	assert.Equal(t, "https://www.bayut.com/property/details-77.html", f.String(FieldDubizzleLink))
	assert.Equal(t, "41306", f.String(FieldPropertyType))
	assert.Equal(t, "41297", f.String(FieldCollectionSource))
}

func TestBayutWhatsApp(t *testing.T) {
	r := newRegistry(&stubOwners{}, Options{})
	lead := decodeLead(t, `{
		"lead_id": 12,
		"listing_id": 4455,
		"date_time": "2025-03-02 09:15:00",
		"detail": {"actor_name": "Fatima", "cell": "+971555000111", "message": "Hello"}
	}`)

	f, err := r.Map(context.Background(), Key{models.PlatformBayut, models.LeadTypeWhatsApp}, lead)
	require.NoError(t, err)

	assert.Equal(t, "Bayut - WhatsApp - Fatima", f.String(FieldTitle), "actor name stands in for a missing reference")
	assert.Equal(t, "Fatima", f.String(FieldContactName))
	assert.Equal(t, "+971555000111", f.String(FieldWhatsAppCell))
	assert.Equal(t, "Hello", f.String(FieldComments))
	assert.Equal(t, "https://www.bayut.com/property/details-4455.html", f.String(FieldBayutLink))
	assert.Equal(t, "41290", f.String(FieldModeOfEnquiry))
	assert.Equal(t, "41295", f.String(FieldCollectionSource))
}

func TestWhatsAppWithoutDetail(t *testing.T) {
	r := newRegistry(&stubOwners{}, Options{})

	f, err := r.Map(context.Background(), Key{models.PlatformDubizzle, models.LeadTypeWhatsApp}, &models.Lead{LeadID: "3"})
	require.NoError(t, err)

	assert.Equal(t, "Dubizzle - WhatsApp - Unknown", f.String(FieldTitle))
	assert.Equal(t, "Unknown", f.String(FieldContactName))
	assert.Equal(t, "", f.String(FieldComments))
	assert.False(t, f.Has(FieldDubizzleLink))
}

func TestDubizzleWhatsAppSplitsLink(t *testing.T) {
	r := newRegistry(&stubOwners{refs: map[string]int{"DZ-55": 31}}, Options{})
	lead := decodeLead(t, `{
		"lead_id": "w-1",
		"listing_reference": "DZ-55",
		"detail": {
			"actor_name": "Omar",
			"cell": 971500000000,
			"message": "I am interested in this flat\nLink: https://dubai.dubizzle.com/property/123 "
		}
	}`)

	f, err := r.Map(context.Background(), Key{models.PlatformDubizzle, models.LeadTypeWhatsApp}, lead)
	require.NoError(t, err)

	assert.Equal(t, "Dubizzle - WhatsApp - DZ-55", f.String(FieldTitle))
	assert.Equal(t, 31, f.Int(FieldAssignedBy))
	assert.Equal(t, "I am interested in this flat", f.String(FieldComments))
	assert.Equal(t, "https://dubai.dubizzle.com/property/123", f.String(FieldDubizzleLink))
	assert.Equal(t, "DZ-55", f.String(FieldReference))
	assert.Equal(t, "971500000000", f.String(FieldWhatsAppCell))
	assert.Equal(t, "41298", f.String(FieldCollectionSource))
}

func TestCallLog(t *testing.T) {
	owners := &stubOwners{phones: map[string]int{"97143000000": 64}}
	r := newRegistry(owners, Options{})
	lead := decodeLead(t, `{
		"lead_id": 901,
		"caller_number": "971501234567",
		"receiver_number": 97143000000,
		"call_status": "answered",
		"call_total_duration": "0:01:10",
		"call_connected_duration": "0:00:59",
		"call_recordingurl": "https://rec.example.com/901.mp3",
		"date": "2025-03-03",
		"time": "14:05:00"
	}`)

	f, err := r.Map(context.Background(), Key{models.PlatformDubizzle, models.LeadTypeCall}, lead)
	require.NoError(t, err)

	assert.Equal(t, "Dubizzle - Call - No reference", f.String(FieldTitle))
	assert.Equal(t, 64, f.Int(FieldAssignedBy))
	assert.Equal(t, "971501234567", f.String(FieldContactName))
	assert.Equal(t, "971501234567", f.String(FieldPhone))
	assert.Equal(t, "answered", f.String(FieldCallStatus))
	assert.Equal(t, "2025-03-03 14:05:00", f.String(FieldTimestamp))
	assert.Equal(t, "41292", f.String(FieldModeOfEnquiry))
	assert.Equal(t, "41296", f.String(FieldCollectionSource))
	assert.Equal(t, "Receiver Number: 97143000000\n"+
		"Call Status: answered\n"+
		"Call Duration: 0:01:10\n"+
		"Call Connected Duration: 0:00:59\n"+
		"Call Recording URL: https://rec.example.com/901.mp3", f.String(FieldComments))

	assert.Equal(t, []resolveCall{{"97143000000", owner.KindPhone}}, owners.calls)
}

func TestCallOwnerPrefersReference(t *testing.T) {
	owners := &stubOwners{refs: map[string]int{"BY-1": 5}, phones: map[string]int{"111": 6}}
	r := newRegistry(owners, Options{})

	f, err := r.Map(context.Background(), Key{models.PlatformBayut, models.LeadTypeCall}, &models.Lead{
		LeadID:           "1",
		ListingReference: "BY-1",
		ReceiverNumber:   "111",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, f.Int(FieldAssignedBy))
	assert.Equal(t, "Bayut - Call - BY-1", f.String(FieldTitle))
	assert.Equal(t, []resolveCall{{"BY-1", owner.KindReference}}, owners.calls)
}

func TestCallOwnerPolicy(t *testing.T) {
	const placeholder = 1893
	lead := &models.Lead{LeadID: "1", ReceiverNumber: "222"}
	key := Key{models.PlatformBayut, models.LeadTypeCall}

	keep := newRegistry(&stubOwners{phones: map[string]int{"222": placeholder}}, Options{
		CallOwnerPolicy:   config.CallOwnerKeep,
		UnassignedOwnerID: placeholder,
	})
	f, err := keep.Map(context.Background(), key, lead)
	require.NoError(t, err)
	assert.Equal(t, placeholder, f.Int(FieldAssignedBy))

	substitute := newRegistry(&stubOwners{phones: map[string]int{"222": placeholder}}, Options{
		CallOwnerPolicy:   config.CallOwnerSubstituteUnassigned,
		UnassignedOwnerID: placeholder,
	})
	f, err = substitute.Map(context.Background(), key, lead)
	require.NoError(t, err)
	assert.Equal(t, defaultOwner, f.Int(FieldAssignedBy))
}

func TestCallWithoutAnyNumbers(t *testing.T) {
	owners := &stubOwners{}
	r := newRegistry(owners, Options{})

	f, err := r.Map(context.Background(), Key{models.PlatformBayut, models.LeadTypeCall}, &models.Lead{LeadID: "2"})
	require.NoError(t, err)

	assert.Equal(t, defaultOwner, f.Int(FieldAssignedBy))
	assert.Equal(t, "Unknown", f.String(FieldContactName))
	assert.False(t, f.Has(FieldTimestamp))
	assert.Empty(t, owners.calls)
}

func TestSplitMessageLink(t *testing.T) {
	msg, link := SplitMessageLink("  Hi there Link: https://x.example/a?b=1  ")
	assert.Equal(t, "Hi there", msg)
	require.NotNil(t, link)
	assert.Equal(t, "https://x.example/a?b=1", *link)

	msg, link = SplitMessageLink("  plain text  ")
	assert.Equal(t, "plain text", msg)
	assert.Nil(t, link)

	// marker without a URL still cuts the message
	msg, link = SplitMessageLink("text Link: none")
	assert.Equal(t, "text", msg)
	assert.Nil(t, link)
}

func TestDurationSeconds(t *testing.T) {
	cases := map[string]int{
		"1:02:03": 3723,
		"0:00:59": 59,
		"00:00":   0,
		"2:30":    150,
	}
	for in, want := range cases {
		got, err := DurationSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "59", "a:b:c", "1:2:3:4", "-1:00:00"} {
		_, err := DurationSeconds(bad)
		assert.Error(t, err, bad)
	}
}

func TestPropertyLink(t *testing.T) {
	assert.Equal(t, "", PropertyLink(" "))
	assert.Equal(t, "https://www.bayut.com/property/details-1.html", PropertyLink("1"))
}

func TestCodesFromCustomTables(t *testing.T) {
	codes := NewCodes(&config.CodeTables{
		CategoryID:       "7",
		Sources:          map[string]string{"Bayut": "SRC_B"},
		CollectionSource: map[string]map[string]string{"bayut": {"EMAIL": "1"}},
		ModeOfEnquiry:    map[string]string{"email": "2"},
		PropertyType:     map[string]string{"Full  Floor": "3"},
	})

	assert.Equal(t, "7", codes.Category())
	assert.Equal(t, "SRC_B", codes.Source(models.PlatformBayut))
	assert.Equal(t, "1", codes.CollectionSource(Key{models.PlatformBayut, models.LeadTypeEmail}))
	assert.Equal(t, "2", codes.ModeOfEnquiry(models.LeadTypeEmail))

	code, ok := codes.PropertyType("full floor")
	assert.True(t, ok)
	assert.Equal(t, "3", code)

	_, ok = codes.PropertyType("")
	assert.False(t, ok)
}
