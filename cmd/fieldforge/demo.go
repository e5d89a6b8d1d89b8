package main

import (
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/OCAP2/fieldforge/internal/handlers"
	"github.com/OCAP2/fieldforge/pkg/core"
)

const (
	demoWorld    = "world"
	demoEntities = 12
	demoTicks    = 40
)

// demo runs the full service against the in-memory world without a host.
// Fields live in memory storage so nothing on disk is touched.
func demo(out io.Writer) error {
	viper.Set("storage.type", "memory")
	viper.Set("storage.autosaveInterval", 0)

	a, err := newApp(out)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.shutdown(); err != nil {
			Logger.Error("Demo shutdown failed", "error", err)
		}
	}()

	// a ring of entities around the origin
	for i := 0; i < demoEntities; i++ {
		angle := 2 * math.Pi * float64(i) / demoEntities
		a.world.Upsert(core.Entity{
			ID: uuid.New(),
			Location: core.Location{
				World:    demoWorld,
				Position: core.Vec3{X: 6 * math.Cos(angle), Y: 64, Z: 6 * math.Sin(angle)},
			},
			Alive: true,
		})
	}

	player := uuid.New().String()
	commands := []string{
		handlers.CmdCreate + "|" + player + "|" + demoWorld + "|0,64,0|radial|-2|8",
		handlers.CmdCreate + "|" + player + "|" + demoWorld + "|4,64,4|linear|1|5|0|1|0|2s",
		handlers.CmdCreate + "|" + player + "|" + demoWorld + "|-4,64,-4|vortex|1.5|6",
		handlers.CmdList + "|" + player,
	}
	for _, cmd := range commands {
		fmt.Fprintf(out, "> %s\n%s\n", cmd, a.bridge.Call(cmd))
	}

	for i := 0; i < demoTicks; i++ {
		stats := a.worker.Tick()
		if stats.Enters > 0 || stats.Exits > 0 || stats.FieldsExpired > 0 {
			fmt.Fprintf(out, "tick %d: affected=%d enters=%d exits=%d expired=%d\n",
				stats.Tick, stats.EntitiesAffected, stats.Enters, stats.Exits, stats.FieldsExpired)
		}
	}

	for _, cmd := range []string{handlers.CmdEvents + "|5", handlers.CmdStatus} {
		fmt.Fprintf(out, "> %s\n%s\n", cmd, a.bridge.Call(cmd))
	}
	return nil
}
