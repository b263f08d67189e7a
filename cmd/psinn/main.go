// Package main provides the psinn command: it trains the models of one
// configuration table, or of every entry of a study plan.
//
// Usage:
//
//	psinn -problem Burgers_inv -run 1
//	psinn -plan plan.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/ZitiLiu/Psi-NN/pinn"
)

func main() {
	defaults := pinn.DefaultOptions()

	problem := flag.String("problem", "", "problem name, e.g. Burgers_inv")
	run := flag.Int("run", 1, "configuration run index")
	configDir := flag.String("config", defaults.ConfigDir, "configuration table directory")
	dataDir := flag.String("data", defaults.DataDir, "reference and calibration data directory")
	resultsDir := flag.String("results", defaults.ResultsDir, "results directory")
	planPath := flag.String("plan", "", "YAML study plan (overrides -problem and -run)")
	seed := flag.Int64("seed", defaults.Seed, "network initialization seed")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("psinn %s\n", pinn.Version)
		return
	}
	if *problem == "" && *planPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := defaults
	opts.ConfigDir = *configDir
	opts.DataDir = *dataDir
	opts.ResultsDir = *resultsDir
	opts.Seed = *seed
	opts.Logger = log.New(os.Stderr, "psinn: ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(pinn.Banner())

	if *planPath != "" {
		plan, err := pinn.LoadPlan(*planPath)
		if err != nil {
			log.Fatalf("Failed to load plan: %v", err)
		}
		if _, err := pinn.RunPlan(ctx, plan, opts); err != nil {
			log.Fatalf("Training failed: %v", err)
		}
		return
	}

	if _, err := pinn.Run(ctx, *problem, *run, opts); err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}
