package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// scenario describes a bench graph and workload. Loadable from TOML:
//
//	[graph]
//	states = 16
//	layers = 4
//	fanout = 3
//
//	[run]
//	writes     = 10000
//	read_every = 10
type scenario struct {
	Name  string      `toml:"name"`
	Graph graphConfig `toml:"graph"`
	Run   runConfig   `toml:"run"`
}

type graphConfig struct {
	// States is the number of writable leaves.
	States int `toml:"states"`

	// Layers is the number of derived layers stacked on the leaves.
	Layers int `toml:"layers"`

	// Fanout is how many nodes of the previous layer each derivation reads.
	Fanout int `toml:"fanout"`
}

type runConfig struct {
	// Writes is the total number of leaf writes.
	Writes int `toml:"writes"`

	// ReadEvery flushes the top layer after every n-th write; 1 means
	// flush on every write, 0 means flush only once at the end.
	ReadEvery int `toml:"read_every"`
}

var profiles = map[string]scenario{
	"fast": {
		Name:  "fast",
		Graph: graphConfig{States: 8, Layers: 2, Fanout: 2},
		Run:   runConfig{Writes: 1000, ReadEvery: 1},
	},
	"standard": {
		Name:  "standard",
		Graph: graphConfig{States: 32, Layers: 4, Fanout: 3},
		Run:   runConfig{Writes: 20000, ReadEvery: 10},
	},
	"stress": {
		Name:  "stress",
		Graph: graphConfig{States: 128, Layers: 6, Fanout: 4},
		Run:   runConfig{Writes: 200000, ReadEvery: 100},
	},
}

func benchCmd() *cobra.Command {
	var scenarioPath string
	var profileName string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Build a scenario graph and measure recomputation behavior",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(scenarioPath, profileName)
			if err != nil {
				return err
			}
			return runBench(sc)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "TOML scenario file")
	cmd.Flags().StringVar(&profileName, "profile", "standard", "built-in profile: fast, standard, stress")
	return cmd
}

func loadScenario(path, profileName string) (scenario, error) {
	if path != "" {
		var sc scenario
		if _, err := toml.DecodeFile(path, &sc); err != nil {
			return scenario{}, fmt.Errorf("load scenario: %w", err)
		}
		if sc.Name == "" {
			sc.Name = path
		}
		return sc, nil
	}

	sc, ok := profiles[profileName]
	if !ok {
		return scenario{}, fmt.Errorf("unknown profile %q", profileName)
	}
	return sc, nil
}

func runBench(sc scenario) error {
	if sc.Graph.States < 1 || sc.Graph.Layers < 1 || sc.Graph.Fanout < 1 {
		return fmt.Errorf("scenario needs at least one state, one layer, and fanout >= 1")
	}

	states := make([]*pulse.State[int], sc.Graph.States)
	prev := make([]pulse.Source, sc.Graph.States)
	for i := range states {
		states[i] = pulse.NewState(i)
		prev[i] = states[i]
	}

	// Leaves on the bottom, then Layers rows of derivations, each reading
	// Fanout nodes of the row below. Only leaves are readable generically,
	// so each row keeps its own typed slice.
	rows := make([][]*pulse.Computed[int], sc.Graph.Layers)
	prevComputed := []*pulse.Computed[int](nil)
	for layer := 0; layer < sc.Graph.Layers; layer++ {
		width := len(prev)
		row := make([]*pulse.Computed[int], width)
		below := prevComputed
		for i := 0; i < width; i++ {
			idx := i
			if layer == 0 {
				row[i] = pulse.NewComputed(func() int {
					sum := 0
					for k := 0; k < sc.Graph.Fanout; k++ {
						sum += states[(idx+k)%len(states)].Get()
					}
					return sum
				})
			} else {
				row[i] = pulse.NewComputed(func() int {
					sum := 0
					for k := 0; k < sc.Graph.Fanout; k++ {
						sum += below[(idx+k)%len(below)].Get()
					}
					return sum
				})
			}
		}
		rows[layer] = row
		prevComputed = row
		prev = make([]pulse.Source, width)
		for i, c := range row {
			prev[i] = c
		}
	}

	top := rows[len(rows)-1]

	notifications := 0
	w := pulse.NewWatcher(func() { notifications++ })
	w.Watch(prev...)
	defer w.Unwatch(prev...)

	flush := func() {
		for _, c := range top {
			c.Get()
		}
		w.Watch() // re-arm
	}
	flush()

	before := pulse.ReadStats()
	start := time.Now()

	for i := 0; i < sc.Run.Writes; i++ {
		states[i%len(states)].Set(i)
		if sc.Run.ReadEvery > 0 && i%sc.Run.ReadEvery == 0 {
			flush()
		}
	}
	flush()

	elapsed := time.Since(start)
	after := pulse.ReadStats()

	fmt.Printf("scenario %s: %d states, %d layers, fanout %d\n",
		sc.Name, sc.Graph.States, sc.Graph.Layers, sc.Graph.Fanout)
	info("writes        %d (%d suppressed)", after.Writes-before.Writes, after.SuppressedWrites-before.SuppressedWrites)
	info("recomputes    %d", after.Recomputations-before.Recomputations)
	info("cache hits    %d", after.CacheHits-before.CacheHits)
	info("notifications %d (observed %d)", after.Notifications-before.Notifications, notifications)
	info("elapsed       %s (%.0f writes/s)", elapsed, float64(sc.Run.Writes)/elapsed.Seconds())
	return nil
}
