// Package neuroevo is a generational neuroevolution engine for fixed-topology
// neural policies.
//
// A population of agents, each driven by a small two-layer feedforward
// network, is scored on a task. When every agent has been culled, scores are
// normalized into fitness and the next generation is drawn by
// fitness-proportionate selection: each offspring is a copy of a selected
// parent whose parameters are perturbed by Gaussian mutation. There is no
// crossover and no elitism.
//
// The engine lives in the evolve package, the policy network in evolve/nn and
// the optional generation history in evolve/history. examples/flappy contains
// a complete headless task.
//
// Basic usage:
//
//	// Load configuration
//	config, err := evolve.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create the first generation with your agent factory
//	evo, err := evolve.NewEvolution(config, newAgent, evolve.NewStdOutReporter(os.Stdout))
//	if err != nil {
//		log.Fatalf("Error creating evolution: %v", err)
//	}
//	defer evo.Close()
//
//	// Run up to 100 generations in your environment
//	if _, err := evo.Run(ctx, env, 100); err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
//	if evo.Solved() {
//		fmt.Println("Solution found!")
//	}
package neuroevo
