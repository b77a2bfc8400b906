package cli

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goccy/go-json"

	"github.com/telhawk-systems/homeids/internal/models"
)

// TelemetryGenerator produces benign device updates. None of them carry a
// detection indicator.
type TelemetryGenerator struct {
	faker *gofakeit.Faker
}

// NewTelemetryGenerator seeds the generator; seed 0 picks a random seed.
func NewTelemetryGenerator(seed int64) *TelemetryGenerator {
	return &TelemetryGenerator{faker: gofakeit.New(seed)}
}

// Generate builds one telemetry payload for d.
func (g *TelemetryGenerator) Generate(d models.Device, now time.Time) ([]byte, error) {
	event := map[string]any{
		"device":    d.Name,
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"user":      g.faker.RandomString([]string{"user1", "user2"}),
	}

	switch d.Type {
	case "light":
		event["state"] = g.faker.RandomString([]string{"on", "off"})
		event["brightness"] = g.faker.Number(0, 100)
	case "thermostat":
		event["state"] = fmt.Sprintf("%.0f°C", g.faker.Float64Range(16, 26))
		event["humidity"] = g.faker.Number(30, 60)
	case "lock":
		event["state"] = g.faker.RandomString([]string{"locked", "unlocked"})
		event["battery"] = g.faker.Number(10, 100)
	default:
		event["state"] = g.faker.Word()
	}

	return json.Marshal(event)
}
