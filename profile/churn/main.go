// Profiling:
// go build ./profile/churn
// go tool pprof -http=":8000" -nodefraction=0.001 ./churn mem.pprof

package main

import (
	"log/slog"
	"os"

	genmap "github.com/Thomas-Mewily/hexga-sub001"
	"github.com/pkg/profile"
)

type particle struct {
	X, Y   float64
	VX, VY float64
	TTL    int
}

func main() {
	rounds := 50
	iters := 1000
	particles := 1000
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(logger, rounds, iters, particles)
	p.Stop()
}

func run(logger *slog.Logger, rounds, iters, numParticles int) {
	for round := range rounds {
		v := genmap.NewGenVecWithCapacity[particle](numParticles)
		ids := make([]genmap.GenID, 0, numParticles)

		for i := range iters {
			for len(ids) < numParticles {
				ids = append(ids, v.Insert(particle{VX: 1, VY: 0.5, TTL: 1 + (len(ids)+i)%8}))
			}
			for _, p := range v.All() {
				p.X += p.VX
				p.Y += p.VY
				p.TTL--
			}
			live := ids[:0]
			for _, id := range ids {
				if v.MustGet(id).TTL <= 0 {
					v.Remove(id)
					continue
				}
				live = append(live, id)
			}
			ids = live
		}

		if err := v.Validate(); err != nil {
			logger.Error("arena corrupted", "round", round, "err", err)
			os.Exit(1)
		}
		logger.Info("round done", "round", round, "len", v.Len(), "cap", v.Cap())
	}
}
