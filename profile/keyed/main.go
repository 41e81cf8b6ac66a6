// Profiling:
// go build ./profile/keyed
// go tool pprof -http=":8000" -nodefraction=0.001 ./keyed cpu.pprof

package main

import (
	"log/slog"
	"os"

	genmap "github.com/Thomas-Mewily/hexga-sub001"
	"github.com/google/uuid"
	"github.com/pkg/profile"
)

type asset struct {
	Name string
	Size int64
}

func main() {
	rounds := 20
	iters := 200
	assets := 5000
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(logger, rounds, iters, assets)
	p.Stop()
}

// run keeps a pool of assets reachable by a current uuid and, after a rename,
// by the uuids they had before. Each iteration gives a seventh of the pool a
// new uuid and drops the oldest uuid of the assets that have several.
func run(logger *slog.Logger, rounds, iters, numAssets int) {
	for round := range rounds {
		m := genmap.NewMultiMapWithCapacity[uuid.UUID, asset](numAssets)
		byName := genmap.NewGenMapWithCapacity[string, genmap.GenID](numAssets)

		for i := range numAssets {
			name := uuid.NewString()
			id, _ := m.Insert(uuid.New(), asset{Name: name, Size: int64(i)})
			byName.Insert(name, id)
		}

		for i := range iters {
			for id := range byName.Values() {
				keys := m.Keys(id)
				switch {
				case int(id.Index)%7 == i%7:
					if err := m.AddKey(id, uuid.New()); err != nil {
						logger.Error("add key", "id", id, "err", err)
					}
				case len(keys) > 1:
					m.RemoveKey(keys[0])
				}
			}
			m.RetainMut(func(_ genmap.GenID, a *asset) bool {
				a.Size++
				return true
			})
		}

		if err := m.Validate(); err != nil {
			logger.Error("multimap corrupted", "round", round, "err", err)
			os.Exit(1)
		}
		if err := byName.Validate(); err != nil {
			logger.Error("name index corrupted", "round", round, "err", err)
			os.Exit(1)
		}
		logger.Info("round done", "round", round, "entries", m.Len(), "keys", m.KeyCount())
	}
}
