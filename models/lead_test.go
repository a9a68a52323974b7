package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexStringDecodes(t *testing.T) {
	cases := map[string]string{
		`"abc"`: "abc",
		`42`:    "42",
		`1.5`:   "1.5",
		`true`:  "true",
		`null`:  "",
	}
	for in, want := range cases {
		var f FlexString
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, f.String(), in)
	}
}

func TestLeadDetailAcceptsEmptyShapes(t *testing.T) {
	for _, in := range []string{`{"detail": []}`, `{"detail": {}}`, `{"detail": null}`} {
		var l Lead
		require.NoError(t, json.Unmarshal([]byte(in), &l), in)
		assert.Empty(t, l.ActorName(), in)
	}

	var l Lead
	require.NoError(t, json.Unmarshal([]byte(`{"detail": {"actor_name": "Sara"}}`), &l))
	assert.Equal(t, "Sara", l.ActorName())
}

func TestLeadDetailRejectsNonEmptyArray(t *testing.T) {
	var l Lead
	assert.Error(t, json.Unmarshal([]byte(`{"detail": [{"actor_name": "Sara"}]}`), &l))
}
