package world

import (
	"fmt"
	"strings"

	"github.com/mcbn/tradepost/internal/config"
	"github.com/mcbn/tradepost/internal/model"
)

// Seed populates players and containers from config.
func Seed(w *World, seed config.WorldSeedConfig) error {
	for _, ps := range seed.Players {
		if ps.ID == "" {
			return fmt.Errorf("seed player without id")
		}
		worldName := ps.World
		if worldName == "" {
			worldName = "world"
		}
		p := w.AddPlayer(ps.ID, ps.Name, model.Vec3{World: worldName, X: ps.X, Y: ps.Y, Z: ps.Z})
		for item, n := range ps.Items {
			// viper lower-cases map keys
			p.inv.Add(model.NewStack(strings.ToUpper(item), n))
		}
	}
	for _, cs := range seed.Containers {
		pos, err := model.ParseBlockPos(cs.Pos)
		if err != nil {
			return fmt.Errorf("seed container: %w", err)
		}
		inv := w.PlaceContainer(pos, cs.Slots)
		for item, n := range cs.Items {
			inv.Add(model.NewStack(strings.ToUpper(item), n))
		}
	}
	return nil
}
