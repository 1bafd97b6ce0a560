package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FlexibleAmount
		wantErr bool
	}{
		{"number", `150000`, 150000, false},
		{"string", `"50000"`, 50000, false},
		{"padded string", `" 10000 "`, 10000, false},
		{"decimal", `10000.0`, 10000, false},
		{"empty string", `""`, 0, false},
		{"null", `null`, 0, false},
		{"garbage", `"ten naira"`, 0, true},
		{"bool", `true`, 0, true},
		{"exponent", `1.5e4`, 15000, false},
		{"overflow", `1e30`, 0, true},
		{"negative overflow", `"-1e30"`, 0, true},
		{"just past int64", `9.3e18`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexibleAmount
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlexibleString(t *testing.T) {
	var req TelcoWebhookRequest
	body := `{"type":"SYNC_NOTIFICATION","product":{"id":42},"details":{"phone":2348012345678,"telco_ref":"TX-1","telco_status_code":0}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "42", req.Product.Id.String())
	assert.Equal(t, "2348012345678", req.Details.Phone.String())
	assert.Equal(t, "TX-1", req.Details.TelcoRef.String())
	assert.Equal(t, "0", req.Details.TelcoStatusCode.String())
}
