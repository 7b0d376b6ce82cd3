package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robgrahamau/datis-go/session"
)

func TestServerSettingsCaseAsymmetry(t *testing.T) {
	cases := []struct {
		name         string
		raw          map[string]string
		wantLOS      bool
		wantDistance bool
	}{
		{"exact casing", map[string]string{"LOS_ENABLED": "True", "DISTANCE_ENABLED": "true"}, true, true},
		{"wrong LOS casing", map[string]string{"LOS_ENABLED": "true", "DISTANCE_ENABLED": "true"}, false, true},
		{"wrong distance casing", map[string]string{"LOS_ENABLED": "True", "DISTANCE_ENABLED": "True"}, true, false},
		{"both wrong", map[string]string{"LOS_ENABLED": "TRUE", "DISTANCE_ENABLED": "TRUE"}, false, false},
		{"missing keys", map[string]string{}, false, false},
		{"nil map", nil, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s session.ServerSettings
			s.ApplyRaw(tc.raw)
			assert.Equal(t, tc.wantLOS, s.LOSEnabled())
			assert.Equal(t, tc.wantDistance, s.DistanceEnabled())
		})
	}
}
