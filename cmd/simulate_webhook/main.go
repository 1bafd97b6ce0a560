// Command simulate_webhook signs and posts aggregator notifications to a
// running billing server.
package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"fitness-billing-be/pkg/billing"
	"fitness-billing-be/pkg/webhook"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	targetURL string
	secret    string
	scenario  string
	file      string
	opts      options
)

var rootCmd = &cobra.Command{
	Use:   "simulate_webhook",
	Short: "Send signed telco notifications to the billing webhook",
	Long: `Replays aggregator notifications against /api/webhooks/telco.

Examples:
  simulate_webhook --scenario lifecycle --phone 08012345678
  simulate_webhook --scenario renewal --amount 50000 --ref TX-42
  simulate_webhook --file ./notification.json`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var payloads [][]byte
		if file != "" {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			payloads = [][]byte{raw}
		} else {
			built, err := buildPayloads(scenario, opts)
			if err != nil {
				return err
			}
			payloads = built
		}

		verifier := webhook.NewVerifier(secret, true)
		if verifier.Skips() {
			color.Yellow("No secret given, sending unsigned requests")
		}
		client := &http.Client{Timeout: 10 * time.Second}

		for _, payload := range payloads {
			if err := send(cmd.OutOrStdout(), client, verifier, payload); err != nil {
				return err
			}
		}
		return nil
	},
}

func send(out io.Writer, client *http.Client, verifier *webhook.Verifier, payload []byte) error {
	signature := ""
	if !verifier.Skips() {
		sig, err := verifier.Sign(payload)
		if err != nil {
			return fmt.Errorf("sign payload: %w", err)
		}
		signature = sig
	}

	req, err := http.NewRequest(http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}

	color.Cyan("-> %s", string(payload))
	resp, err := client.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	status := color.GreenString(resp.Status)
	if resp.StatusCode >= 400 {
		status = color.RedString(resp.Status)
	}
	fmt.Fprintf(out, "<- %s %s\n", status, strings.TrimSpace(string(body)))
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		color.HiBlack("Note: .env file not found, using flags and system env")
	}

	flags := rootCmd.Flags()
	flags.StringVar(&targetURL, "url", "http://localhost:3000/api/webhooks/telco", "webhook endpoint")
	flags.StringVar(&secret, "secret", os.Getenv("TELCO_WEBHOOK_SECRET"), "shared HMAC secret")
	flags.StringVar(&scenario, "scenario", "lifecycle", "one of "+strings.Join(scenarioNames(), ", "))
	flags.StringVar(&file, "file", "", "send this JSON file verbatim instead of a scenario")
	flags.StringVar(&opts.Phone, "phone", "08012345678", "subscriber MSISDN")
	flags.Int64Var(&opts.Amount, "amount", billing.AmountDaily, "charge in minor units")
	flags.StringVar(&opts.Telco, "telco", "MTN", "telco name")
	flags.StringVar(&opts.Channel, "channel", "USSD", "SMS, USSD or WEB")
	flags.StringVar(&opts.ProductId, "product", "fitness-premium", "aggregator product id")
	flags.StringVar(&opts.RefPrefix, "ref", "", "telco reference prefix (default SIM-<unix>)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
