package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"procheff/internal/app"
	"procheff/internal/config"
	"procheff/internal/database"
	"procheff/internal/logging"
	"procheff/internal/metrics"
	"procheff/internal/storage"
	"procheff/internal/variant"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(cfg.DBPath, logger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	store, err := storage.NewDataStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize data store: %v", err)
	}

	application, err := app.NewApp(cfg, store, metrics.NewStore(db.SQL), logger, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}

	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "recipe-cost":
		requireArgs("recipe-cost <recipeId>", args, 1)
		err = application.RecipeCost(ctx, args[0])
	case "month-cost":
		requireArgs("month-cost <plan>", args, 1)
		err = application.MonthCost(ctx, args[0])
	case "missing-prices":
		requireArgs("missing-prices <plan>", args, 1)
		err = application.MissingPrices(ctx, args[0])
	case "simulate":
		productID, in := parseSimulate(args)
		err = application.Simulate(ctx, productID, in)
	case "compare":
		requireArgs("compare <productId>", args, 1)
		err = application.Compare(ctx, args[0])
	case "import-prices":
		requireArgs("import-prices <file|url>", args, 1)
		err = application.ImportPrices(ctx, args[0])
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)
		err = application.CleanupMetrics(ctx, *days)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

// parseSimulate reads "<productId> <qty> [unit]" followed by optional flags.
func parseSimulate(args []string) (string, variant.SimulationInput) {
	const usage = "simulate <productId> <qty> [unit] [-variant id] [-budget n]"

	positional := args
	for i, a := range args {
		if strings.HasPrefix(a, "-") {
			positional = args[:i]
			break
		}
	}
	if len(positional) < 2 || len(positional) > 3 {
		log.Fatalf("Usage: procheff %s", usage)
	}

	simCmd := flag.NewFlagSet("simulate", flag.ExitOnError)
	variantID := simCmd.String("variant", "", "Variant to buy instead of the cheapest")
	budget := simCmd.Float64("budget", 0, "Target budget in TRY")
	simCmd.Parse(args[len(positional):])

	qty, err := strconv.ParseFloat(strings.ReplaceAll(positional[1], ",", "."), 64)
	if err != nil {
		log.Fatalf("Invalid quantity %q: %v", positional[1], err)
	}
	in := variant.SimulationInput{
		RequiredQuantity:  qty,
		SelectedVariantID: *variantID,
		TargetBudget:      *budget,
	}
	if len(positional) == 3 {
		in.RequiredUnit = positional[2]
	}
	return positional[0], in
}

func requireArgs(usage string, args []string, n int) {
	if len(args) < n {
		log.Fatalf("Usage: procheff %s", usage)
	}
}

func printUsage() {
	fmt.Println("Usage: procheff <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  recipe-cost <recipeId>                 Cost one recipe")
	fmt.Println("  month-cost <plan>                      Cost a plan from the plans directory")
	fmt.Println("  missing-prices <plan>                  List unpriced materials of a plan")
	fmt.Println("  simulate <productId> <qty> [unit]      Simulate a purchase (-variant id, -budget n)")
	fmt.Println("  compare <productId>                    Compare the variants of a product")
	fmt.Println("  import-prices <file|url>               Import a vendor price table")
	fmt.Println("  metrics-cleanup                        Remove old metric records (-days N)")
}
