package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --- Telco aggregator webhook ---

type TelcoWebhookRequest struct {
	Type    string              `json:"type"`
	Telco   string              `json:"telco"`
	Product TelcoWebhookProduct `json:"product"`
	Details TelcoWebhookDetails `json:"details"`
}

type TelcoWebhookProduct struct {
	Id FlexibleString `json:"id"`
}

type TelcoWebhookDetails struct {
	Phone              FlexibleString `json:"phone" validate:"required"`
	Amount             FlexibleAmount `json:"amount" validate:"gte=0"`
	TelcoRef           FlexibleString `json:"telco_ref"`
	TelcoStatusCode    FlexibleString `json:"telco_status_code"`
	TelcoStatusMessage string         `json:"telco_status_message"`
	Channel            string         `json:"channel"`
	Reason             string         `json:"reason,omitempty"`
}

type WebhookResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Event     string `json:"event,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// FlexibleAmount accepts a JSON number or a numeric string, in kobo.
type FlexibleAmount int64

func (a *FlexibleAmount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*a = FlexibleAmount(n)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid amount %q", raw)
	}
	f = math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if f >= float64(math.MaxInt64) || f < float64(math.MinInt64) {
		return fmt.Errorf("amount %q out of range", raw)
	}
	*a = FlexibleAmount(f)
	return nil
}

// FlexibleString accepts a JSON string or number and keeps its text.
type FlexibleString string

func (s *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexibleString(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = FlexibleString(num.String())
	return nil
}

func (s FlexibleString) String() string {
	return string(s)
}
