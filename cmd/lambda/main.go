//go:build lambda

package main

import (
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/config"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/internal/function"
)

func main() {
	path := os.Getenv("DATASET_PATH")
	if path == "" {
		path = "./data/factorio.json"
	}

	d, err := dataset.Load(path)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	adjCfg, err := cfg.AdjusterConfig()
	if err != nil {
		log.Fatalf("Invalid adjustment rules: %v", err)
	}

	log.Printf("Serving %s dataset from %s (%d recipes)", d.Game, path, len(d.RecipeIDs))
	lambda.Start(function.New(d, adjust.New(adjCfg)).Handle)
}
