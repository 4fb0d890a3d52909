package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"procheff/internal/cost"
	"procheff/internal/metrics"
	"procheff/internal/shared"
	"procheff/internal/variant"
)

// maxAlternatives is the number of alternatives listed by /simulate.
const maxAlternatives = 3

const helpText = `🧾 *ProCheff cost assistant*

/recipe <id> - cost of one recipe
/day <people> <id...> - cost of a day's menu
/missing <id...> - materials without a price
/simulate <product> <qty> [unit] - cheapest way to buy
/metrics - recent calculations and system health
/help - this message`

// RunStore records calculation runs and summarizes them.
type RunStore interface {
	Record(ctx context.Context, r metrics.Run) (string, error)
	GetDailySummary(ctx context.Context, days int) ([]metrics.DailySummary, error)
}

// Commands turns chat commands into Markdown replies.
type Commands struct {
	costs     *cost.Engine
	products  *variant.Catalog
	simulator *variant.CostSimulationEngine
	runs      RunStore
	dataDir   string
}

// NewCommands creates a Commands. runs may be nil.
func NewCommands(costs *cost.Engine, products *variant.Catalog, runs RunStore, dataDir string) *Commands {
	return &Commands{
		costs:     costs,
		products:  products,
		simulator: variant.NewCostSimulationEngine(),
		runs:      runs,
		dataDir:   dataDir,
	}
}

// Handle runs the command in text and returns the reply.
func (c *Commands) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return helpText
	}
	// "/recipe@ProCheffBot R1" in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/recipe":
		return c.recipe(ctx, args)
	case "/day":
		return c.day(ctx, args)
	case "/missing":
		return c.missing(ctx, args)
	case "/simulate":
		return c.simulate(ctx, args)
	case "/metrics":
		return c.metrics(ctx)
	case "/start", "/help":
		return helpText
	default:
		return "🤔 Unknown command. Send /help for the list."
	}
}

func (c *Commands) recipe(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: /recipe <id>"
	}
	start := time.Now()
	rc, err := c.costs.CalculateRecipeCost(args[0])
	if errors.Is(err, cost.ErrRecipeNotFound) {
		return fmt.Sprintf("❌ Recipe *%s* not found.", escape(args[0]))
	}
	if err != nil {
		return errorReply(err)
	}
	c.record(ctx, metrics.Run{
		Kind:         metrics.KindRecipeCost,
		Subject:      rc.RecipeID,
		Duration:     time.Since(start),
		WarningCount: len(rc.Warnings),
		TotalTRY:     rc.TotalCost,
	})
	return formatRecipeCost(rc)
}

func (c *Commands) day(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: /day <people> <id...>"
	}
	people, err := strconv.Atoi(args[0])
	if err != nil || people < 0 {
		return "❌ People must be a non-negative number."
	}
	start := time.Now()
	day := c.costs.CalculateDayCost(time.Now().Format("2006-01-02"), args[1:], people)
	c.record(ctx, metrics.Run{
		Kind:     metrics.KindDayCost,
		Subject:  day.Date,
		Duration: time.Since(start),
		TotalTRY: day.TotalCostTRY,
	})
	return formatDayCost(day, people)
}

func (c *Commands) missing(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /missing <id...>"
	}
	start := time.Now()
	ids := c.costs.FindMissingPrices(args)
	c.record(ctx, metrics.Run{
		Kind:         metrics.KindMissingPrices,
		Duration:     time.Since(start),
		WarningCount: len(ids),
	})
	if len(ids) == 0 {
		return "✅ All materials are priced."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠️ *%d materials without a price*\n\n", len(ids)))
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("• %s\n", escape(id)))
	}
	return sb.String()
}

func (c *Commands) simulate(ctx context.Context, args []string) string {
	if len(args) < 2 || len(args) > 3 {
		return "Usage: /simulate <product> <qty> [unit]"
	}
	qty, err := strconv.ParseFloat(strings.Replace(args[1], ",", ".", 1), 64)
	if err != nil {
		return "❌ Quantity must be a number."
	}
	in := variant.SimulationInput{RequiredQuantity: qty}
	if len(args) == 3 {
		in.RequiredUnit = args[2]
	}

	p, err := c.products.Get(args[0])
	if err != nil {
		return fmt.Sprintf("❌ Product *%s* not found.", escape(args[0]))
	}

	start := time.Now()
	res, err := c.simulator.Simulate(p, in)
	if err != nil {
		return errorReply(err)
	}
	c.record(ctx, metrics.Run{
		Kind:     metrics.KindSimulation,
		Subject:  p.ID,
		Duration: time.Since(start),
		TotalTRY: res.Selected.TotalCost,
	})
	return formatSimulation(res)
}

func (c *Commands) metrics(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Calculations*\n")
	var summary []metrics.DailySummary
	if c.runs != nil {
		var err error
		summary, err = c.runs.GetDailySummary(ctx, 7)
		if err != nil {
			return "❌ Error fetching metrics."
		}
	}
	if len(summary) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range summary {
		sb.WriteString(fmt.Sprintf("• *%s* %s: %d runs, %d warnings\n", d.Date, escape(string(d.Kind)), d.Runs, d.Warnings))
	}

	health := metrics.GetSysHealth(c.dataDir)
	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func (c *Commands) record(ctx context.Context, run metrics.Run) {
	if c.runs == nil {
		return
	}
	// Best effort.
	_, _ = c.runs.Record(ctx, run)
}

func formatRecipeCost(rc cost.RecipeCost) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍲 *%s*\n\n", escape(rc.RecipeName)))
	sb.WriteString(fmt.Sprintf("*Total:* %s\n", shared.FormatTRY(rc.TotalCost)))
	sb.WriteString(fmt.Sprintf("*Per portion* (%d): %s\n", rc.Portions, shared.FormatTRY(rc.CostPerPortion)))

	if len(rc.Breakdown) > 0 {
		sb.WriteString("\n🧺 *Ingredients*\n")
		for _, ic := range rc.Breakdown {
			sb.WriteString(fmt.Sprintf("• %s: %g %s × %s = %s\n",
				escape(ic.MaterialName), ic.Qty, ic.Unit, shared.FormatTRY(ic.UnitPrice), shared.FormatTRY(ic.Cost)))
		}
	}
	if len(rc.Warnings) > 0 {
		sb.WriteString("\n⚠️ *Warnings*\n")
		for _, w := range rc.Warnings {
			sb.WriteString(fmt.Sprintf("• _%s_\n", escape(w.Message)))
		}
	}
	return sb.String()
}

func formatDayCost(day cost.DayCost, people int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Menu cost for %d people*\n\n", people))
	for _, r := range day.Recipes {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", escape(r.RecipeName), shared.FormatTRY(r.CostTRY)))
	}
	if skipped := day.RecipeCount - len(day.Recipes); skipped > 0 {
		sb.WriteString(fmt.Sprintf("_%d unknown recipes skipped_\n", skipped))
	}
	sb.WriteString(fmt.Sprintf("\n*Total:* %s", shared.FormatTRY(day.TotalCostTRY)))
	if people > 0 {
		sb.WriteString(fmt.Sprintf(" (%s per person)", shared.FormatTRY(day.TotalCostTRY/float64(people))))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatSimulation(res variant.SimulationResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *%s*\n\n", escape(res.ProductName)))
	sb.WriteString(fmt.Sprintf("*Best buy:* %d × %g %s from %s\n",
		res.Selected.PackageCount, res.Selected.Variant.Size, res.Selected.Variant.SizeUnit, escape(res.Selected.Variant.Vendor)))
	sb.WriteString(fmt.Sprintf("*Total:* %s\n", shared.FormatTRY(res.Selected.TotalCost)))
	if res.Selected.RemainingAmount > 0 {
		sb.WriteString(fmt.Sprintf("*Leftover:* %g %s\n", res.Selected.RemainingAmount, res.Selected.Variant.SizeUnit))
	}

	if len(res.Alternatives) > 0 {
		sb.WriteString("\n🔁 *Alternatives*\n")
		for _, alt := range res.Alternatives[:min(maxAlternatives, len(res.Alternatives))] {
			sb.WriteString(fmt.Sprintf("• %d × %g %s (%s): %s",
				alt.PackageCount, alt.Variant.Size, alt.Variant.SizeUnit, escape(alt.Variant.Vendor), shared.FormatTRY(alt.TotalCost)))
			if alt.Savings > 0 {
				sb.WriteString(fmt.Sprintf(", saves %s", shared.FormatTRY(alt.Savings)))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func errorReply(err error) string {
	return fmt.Sprintf("❌ *Error:*\n```\n%s\n```", strings.ReplaceAll(err.Error(), "`", "'"))
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escape protects user and catalog text from Telegram's Markdown parser.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}
