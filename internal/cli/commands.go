// Package cli implements homeidsctl, a training companion for homeids: it
// simulates attacks and benign telemetry on the broker and reads the audit log.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
	natsclient "github.com/telhawk-systems/homeids/internal/messaging/nats"
	"github.com/telhawk-systems/homeids/internal/models"
)

// DialFunc returns a broker dialer for the given URL.
type DialFunc func(url string) messaging.Dialer

// NATSDialer connects to a NATS server.
func NATSDialer(url string) messaging.Dialer {
	cfg := natsclient.DefaultConfig()
	cfg.URL = url
	cfg.Name = "homeidsctl"
	cfg.MaxReconnects = 0
	return natsclient.Dialer(cfg, logging.Discard())
}

type app struct {
	dial DialFunc
	now  func() time.Time
}

// NewRootCommand builds the homeidsctl command tree.
func NewRootCommand(dial DialFunc) *cobra.Command {
	a := &app{dial: dial, now: time.Now}

	root := &cobra.Command{
		Use:   "homeidsctl",
		Short: "homeids training CLI",
		Long: `homeidsctl drives the homeids intrusion-detection training environment.

Simulate attacks and benign telemetry directly on the message broker,
then inspect what the detection engine recorded.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("nats-url", "nats://localhost:4222", "message broker URL")
	root.PersistentFlags().String("api-url", "http://localhost:5000", "homeids API URL")
	root.PersistentFlags().StringP("output", "o", FormatTable, "output format: table, json, yaml")

	root.AddCommand(a.attackCommand(), a.telemetryCommand(), a.logsCommand())
	return root
}

func (a *app) connect(cmd *cobra.Command) (messaging.Client, error) {
	url, _ := cmd.Flags().GetString("nats-url")
	client, err := a.dial(url)(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return client, nil
}

func (a *app) attackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attack [pattern]",
		Short: "Publish a simulated attack",
		Long:  "Publish a simulated attack straight onto a device topic, bypassing the authorization gate. Without a pattern, list the available ones.",
		Example: `  homeidsctl attack
  homeidsctl attack unauthorized --device lock
  homeidsctl attack dos --device light1`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: List(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range List() {
					p, _ := Get(name)
					fmt.Fprintf(out, "%-14s %s\n", name, p.Description())
				}
				return nil
			}

			p, ok := Get(args[0])
			if !ok {
				return fmt.Errorf("unknown attack %q (available: %v)", args[0], List())
			}
			device, _ := cmd.Flags().GetString("device")

			client, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sent, err := RunAttack(cmd.Context(), client, p, device, a.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ %s attack sent: %d message(s) to %s\n", p.Name(), sent, messaging.DeviceTopic(device))
			return nil
		},
	}
	cmd.Flags().String("device", "light1", "target device")
	return cmd
}

func (a *app) telemetryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Publish benign device telemetry",
		Example: `  homeidsctl telemetry
  homeidsctl telemetry --device thermostat --count 10 --interval 500ms`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			device, _ := cmd.Flags().GetString("device")
			count, _ := cmd.Flags().GetInt("count")
			interval, _ := cmd.Flags().GetDuration("interval")
			seed, _ := cmd.Flags().GetInt64("seed")
			if count < 1 {
				return fmt.Errorf("count must be positive")
			}

			devices := models.DefaultDevices()
			if device != "" {
				var selected []models.Device
				for _, d := range devices {
					if d.Name == device {
						selected = append(selected, d)
					}
				}
				if len(selected) == 0 {
					return fmt.Errorf("unknown device %q", device)
				}
				devices = selected
			}

			client, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sent, err := publishTelemetry(cmd.Context(), client, NewTelemetryGenerator(seed), devices, count, interval, a.now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ published %d telemetry message(s)\n", sent)
			return nil
		},
	}
	cmd.Flags().String("device", "", "device to report for (default: all)")
	cmd.Flags().Int("count", 1, "rounds of telemetry to publish")
	cmd.Flags().Duration("interval", time.Second, "delay between rounds")
	cmd.Flags().Int64("seed", 0, "random seed (0 = random)")
	return cmd
}

func publishTelemetry(ctx context.Context, pub messaging.Publisher, gen *TelemetryGenerator, devices []models.Device, rounds int, interval time.Duration, now func() time.Time) (int, error) {
	sent := 0
	for i := 0; i < rounds; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(interval):
			}
		}
		for _, d := range devices {
			data, err := gen.Generate(d, now())
			if err != nil {
				return sent, err
			}
			if err := pub.Publish(ctx, messaging.DeviceTopic(d.Name), data); err != nil {
				return sent, fmt.Errorf("failed to publish telemetry for %s: %w", d.Name, err)
			}
			sent++
		}
	}
	return sent, nil
}

func (a *app) logsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recorded events",
		Example: `  homeidsctl logs --type ATTACK
  homeidsctl logs --attacks -o yaml
  homeidsctl logs --device lock --limit 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiURL, _ := cmd.Flags().GetString("api-url")
			format, _ := cmd.Flags().GetString("output")
			q := LogQuery{}
			q.Type, _ = cmd.Flags().GetString("type")
			q.Device, _ = cmd.Flags().GetString("device")
			q.Limit, _ = cmd.Flags().GetInt("limit")
			q.Attacks, _ = cmd.Flags().GetBool("attacks")

			events, err := NewAPIClient(apiURL).Logs(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("failed to fetch logs: %w", err)
			}
			return WriteLogs(cmd.OutOrStdout(), format, events)
		},
	}
	cmd.Flags().String("type", "", "filter by log type (ATTACK, DEFENSE, DEVICE_UPDATE, AUTH)")
	cmd.Flags().String("device", "", "filter by device")
	cmd.Flags().Int("limit", 0, "maximum records (server default when 0)")
	cmd.Flags().Bool("attacks", false, "only show attack records")
	return cmd
}
