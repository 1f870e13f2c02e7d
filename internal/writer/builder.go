// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/uavbridge/internal/config"
	wmodbus "github.com/tamzrod/uavbridge/internal/writer/modbus"
)

// BuildPlan converts the mirror config into a register Plan.
// Assumes config has already passed validation.
func BuildPlan(m config.MirrorConfig) (Plan, error) {
	if m.Endpoint == "" {
		return Plan{}, errors.New("writer: mirror.endpoint required")
	}
	if m.UnitID > 255 {
		return Plan{}, fmt.Errorf("writer: unit id %d out of range", m.UnitID)
	}

	p := Plan{
		Endpoint:    m.Endpoint,
		UnitID:      uint8(m.UnitID),
		BaseAddress: m.Address,
	}
	for _, f := range m.Fields {
		p.Fields = append(p.Fields, Field{Key: f.Key, Scale: f.Scale})
	}
	if m.Status != nil {
		p.Status = &StatusPlan{
			BaseAddress: m.Status.Address,
			Adapters:    append([]string(nil), m.Status.Adapters...),
		}
	}
	return p, nil
}

// Target is everything needed to mirror into one endpoint.
type Target struct {
	Writer   Writer
	Statuses map[string]StatusWriter
	Close    func() error
}

// Dial connects to the plan's endpoint and builds its writers.
func Dial(plan Plan, timeout time.Duration) (*Target, error) {
	cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: plan.Endpoint,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, &WriteError{Endpoint: plan.Endpoint, Err: err}
	}

	return &Target{
		Writer:   New(plan, cli),
		Statuses: NewStatusWriters(plan, cli),
		Close:    cli.Close,
	}, nil
}
