package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type notification struct {
	Type    string  `json:"type"`
	Telco   string  `json:"telco"`
	Product product `json:"product"`
	Details details `json:"details"`
}

type product struct {
	Id string `json:"id"`
}

type details struct {
	Phone              string `json:"phone"`
	Amount             int64  `json:"amount"`
	TelcoRef           string `json:"telco_ref"`
	TelcoStatusCode    string `json:"telco_status_code,omitempty"`
	TelcoStatusMessage string `json:"telco_status_message,omitempty"`
	Channel            string `json:"channel,omitempty"`
	Reason             string `json:"reason,omitempty"`
}

type options struct {
	Phone     string
	Amount    int64
	Telco     string
	Channel   string
	ProductId string
	RefPrefix string
}

// scenarios lists the event sequences the simulator can replay.
var scenarios = map[string][]string{
	"sync":         {"SYNC_NOTIFICATION"},
	"renewal":      {"RENEWAL_NOTIFICATION"},
	"insufficient": {"INSUFFICIENT_BALANCE"},
	"unsubscribe":  {"UNSUBSCRIPTION_NOTIFICATION"},
	"lifecycle":    {"SYNC_NOTIFICATION", "RENEWAL_NOTIFICATION", "INSUFFICIENT_BALANCE", "RENEWAL_NOTIFICATION", "UNSUBSCRIPTION_NOTIFICATION"},
}

func scenarioNames() []string {
	return []string{"sync", "renewal", "insufficient", "unsubscribe", "lifecycle"}
}

func buildPayloads(scenario string, opts options) ([][]byte, error) {
	types, ok := scenarios[scenario]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (want one of %s)", scenario, strings.Join(scenarioNames(), ", "))
	}
	if opts.RefPrefix == "" {
		opts.RefPrefix = fmt.Sprintf("SIM-%d", time.Now().Unix())
	}

	out := make([][]byte, 0, len(types))
	for i, eventType := range types {
		n := notification{
			Type:    eventType,
			Telco:   opts.Telco,
			Product: product{Id: opts.ProductId},
			Details: details{
				Phone:    opts.Phone,
				Amount:   opts.Amount,
				TelcoRef: fmt.Sprintf("%s-%d", opts.RefPrefix, i+1),
				Channel:  opts.Channel,
			},
		}
		switch eventType {
		case "INSUFFICIENT_BALANCE":
			n.Details.Amount = 0
			n.Details.TelcoStatusCode = "51"
			n.Details.TelcoStatusMessage = "Insufficient balance"
		case "UNSUBSCRIPTION_NOTIFICATION":
			n.Details.Amount = 0
			n.Details.Reason = "subscriber_request"
		default:
			n.Details.TelcoStatusCode = "00"
			n.Details.TelcoStatusMessage = "Successful"
		}

		raw, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}
