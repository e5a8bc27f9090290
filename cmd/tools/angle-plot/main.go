// Command angle-plot replays a recorded oracle session through the tracker
// and plots the joint angles, thresholds and counted repetitions to a PNG.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/repcount/internal/config"
	"github.com/banshee-data/repcount/internal/motion"
)

func main() {
	fixture := flag.String("fixture", "fixtures/pushups.jsonl", "recorded session, one oracle line per line")
	configPath := flag.String("config", config.DefaultConfigPath, "tuning config JSON")
	output := flag.String("o", "angles.png", "output PNG path")
	summary := flag.String("summary", "", "optional path for a JSON session summary")
	countGood := flag.Bool("count-only-good-form", false, "only count repetitions with good form")
	flag.Parse()

	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *countGood {
		cfg.SetCountOnlyGoodForm(true)
	}

	f, err := os.Open(*fixture)
	if err != nil {
		log.Fatalf("failed to open fixture: %v", err)
	}
	defer f.Close()

	a, err := analyse(context.Background(), f, motion.ConfigFromTuning(cfg))
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	if err := renderPlot(a, *output); err != nil {
		log.Fatalf("failed to render plot: %v", err)
	}

	if *summary != "" {
		data, err := json.MarshalIndent(a.Stats, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal summary: %v", err)
		}
		if err := os.WriteFile(*summary, data, 0644); err != nil {
			log.Fatalf("failed to write summary: %v", err)
		}
	}

	fmt.Println(a.Summary())
	log.Printf("✓ Created: %s", *output)
}
