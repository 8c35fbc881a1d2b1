package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

// Commands lists the portfolioctl subcommands
var Commands = []subcommands.Command{
	&valuationCmd{},
	&analyticsCmd{},
	&goalsCmd{},
	&remoteCmd{},
}

// Register adds every portfolioctl subcommand to the commander
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands[:3] {
		c.Register(cmd, "portfolio file")
	}
	c.Register(Commands[3], "server")
}

// fileFlags are shared by the commands reading a portfolio file
type fileFlags struct {
	file     string
	user     string
	currency string
	asJSON   bool
	timeout  time.Duration

	out io.Writer
	now func() time.Time
}

func (c *fileFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "portfolio.json", "Path to the portfolio file (JSON)")
	f.StringVar(&c.user, "user", "demo", "User whose portfolio is evaluated")
	f.StringVar(&c.currency, "c", "INR", "Currency used to display amounts")
	f.BoolVar(&c.asJSON, "json", false, "Print the raw result as JSON")
	f.DurationVar(&c.timeout, "timeout", valuation.DefaultLookupTimeout, "Per-identifier price lookup timeout")
}

func (c *fileFlags) output() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

func (c *fileFlags) clock() func() time.Time {
	if c.now == nil {
		return time.Now
	}
	return c.now
}

func (c *fileFlags) engine(ctx context.Context, places int32) (*engine, error) {
	store, err := LoadPortfolio(ctx, c.file)
	if err != nil {
		return nil, err
	}
	return newEngine(store, c.clock(), places, c.timeout), nil
}

func fail(format string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+": %v\n", err)
	return subcommands.ExitFailure
}

// valuationCmd holds the flags for the 'valuation' subcommand.
type valuationCmd struct {
	fileFlags
}

func (*valuationCmd) Name() string     { return "valuation" }
func (*valuationCmd) Synopsis() string { return "value every open holding at its latest price" }
func (*valuationCmd) Usage() string {
	return `portfolioctl valuation [-f <file>] [-user <id>] [-c <currency>] [-json]

  Values the user's open holdings. Holdings without a price are listed as excluded
  and left out of the totals.
`
}

func (c *valuationCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *valuationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	e, err := c.engine(ctx, 0)
	if err != nil {
		return fail("Error loading portfolio", err)
	}

	result, err := e.valuation.Valuate(ctx, domain.UserID(c.user))
	if err != nil {
		return fail("Error valuing portfolio", err)
	}

	w := c.output()
	if c.asJSON {
		if err := writeJSON(w, result); err != nil {
			return fail("Error writing result", err)
		}
		return subcommands.ExitSuccess
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Identifier\tCategory\tQuantity\tPrice\tValue\tGain\tReturn\t")
	for _, s := range result.Snapshots {
		if !s.IsPriced() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s%%\t\n",
			s.Identifier, s.Category, s.Quantity.String(),
			amount(s.MarketPrice, c.currency), amount(s.MarketValue, c.currency), amount(s.UnrealizedGain, c.currency),
			s.ReturnPercent.StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal value: %s  cost: %s  gain: %s (%s%%)\n",
		amount(result.TotalMarketValue, c.currency),
		amount(result.TotalCostBasis, c.currency),
		amount(result.TotalUnrealizedGain, c.currency),
		result.TotalReturnPercent.StringFixed(2))
	for _, ex := range result.Excluded {
		fmt.Fprintf(w, "Excluded %s: %s\n", ex.Identifier, ex.Reason)
	}
	return subcommands.ExitSuccess
}

// analyticsCmd holds the flags for the 'analytics' subcommand.
type analyticsCmd struct {
	fileFlags
	from        string
	to          string
	granularity string
	places      int
}

func (*analyticsCmd) Name() string     { return "analytics" }
func (*analyticsCmd) Synopsis() string { return "cash flow, allocation and net worth over a date range" }
func (*analyticsCmd) Usage() string {
	return `portfolioctl analytics -from <date> -to <date> [-g daily|weekly|monthly|yearly] [-f <file>] [-user <id>]

  Aggregates the user's transactions into calendar buckets over [from, to) and
  reports the current allocation and the net worth at each bucket boundary.
`
}

func (c *analyticsCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.from, "from", "", "Start of the range, inclusive (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "End of the range, exclusive (YYYY-MM-DD)")
	f.StringVar(&c.granularity, "g", "monthly", "Bucket granularity")
	f.IntVar(&c.places, "places", 2, "Decimal places of allocation percentages")
}

func (c *analyticsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	from, err := domain.ParseDate(c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := domain.ParseDate(c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
		return subcommands.ExitUsageError
	}
	g, err := domain.ParseGranularity(c.granularity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -g: %v\n", err)
		return subcommands.ExitUsageError
	}

	e, err := c.engine(ctx, int32(c.places))
	if err != nil {
		return fail("Error loading portfolio", err)
	}

	summary, err := e.analytics.Summarize(ctx, domain.UserID(c.user), domain.DateRange{From: from, To: to}, g)
	if err != nil {
		return fail("Error computing analytics", err)
	}

	w := c.output()
	if c.asJSON {
		if err := writeJSON(w, summary); err != nil {
			return fail("Error writing result", err)
		}
		return subcommands.ExitSuccess
	}
	if summary.Empty {
		fmt.Fprintln(w, "Empty range: nothing to report")
		return subcommands.ExitSuccess
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Bucket\tIncome\tExpense\tDividends\tNet\tNet worth\t")
	for i, b := range summary.CashFlow {
		worth := decimal.Zero
		if i < len(summary.NetWorth.Points) {
			worth = summary.NetWorth.Points[i].Total
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			b.Start.Format(time.DateOnly),
			amount(b.Income, c.currency), amount(b.Expense, c.currency), amount(b.Dividends, c.currency),
			amount(b.Net, c.currency), amount(worth, c.currency))
	}
	tw.Flush()

	fmt.Fprintln(w, "\nAllocation by category:")
	for _, s := range summary.Allocation.ByCategory {
		fmt.Fprintf(w, "  %-20s %8s%%  %s  return %s%%\n",
			s.Key, s.Percent.String(), amount(s.Value, c.currency), s.ReturnPercent.StringFixed(2))
	}
	if summary.Allocation.Partial {
		fmt.Fprintf(w, "  (partial: %d holding(s) unpriced, cost basis %s)\n",
			len(summary.Allocation.Excluded), amount(summary.Allocation.UnpricedCostBasis, c.currency))
	}

	if len(summary.TopExpenses) > 0 {
		fmt.Fprintln(w, "\nTop expenses:")
		for _, ex := range summary.TopExpenses {
			fmt.Fprintf(w, "  %s  %-16s %s  %s\n", ex.Date.Format(time.DateOnly), ex.Category, amount(ex.Amount, c.currency), ex.Description)
		}
	}
	return subcommands.ExitSuccess
}

// goalsCmd holds the flags for the 'goals' subcommand.
type goalsCmd struct {
	fileFlags
	granularity string
}

func (*goalsCmd) Name() string     { return "goals" }
func (*goalsCmd) Synopsis() string { return "progress of every goal with a projected completion date" }
func (*goalsCmd) Usage() string {
	return `portfolioctl goals [-g monthly] [-f <file>] [-user <id>]

  Evaluates each goal against the trailing net worth series. Status changes are
  not written back to the file.
`
}

func (c *goalsCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.granularity, "g", "monthly", "Granularity of the trailing growth")
}

func (c *goalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	g, err := domain.ParseGranularity(c.granularity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -g: %v\n", err)
		return subcommands.ExitUsageError
	}

	e, err := c.engine(ctx, 0)
	if err != nil {
		return fail("Error loading portfolio", err)
	}

	progress, err := e.goals.Progress(ctx, domain.UserID(c.user), g)
	if err != nil {
		return fail("Error evaluating goals", err)
	}

	w := c.output()
	if c.asJSON {
		if err := writeJSON(w, progress); err != nil {
			return fail("Error writing result", err)
		}
		return subcommands.ExitSuccess
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Goal\tStatus\tCurrent\tTarget\tProgress\tProjected\tDays left\t")
	for _, p := range progress {
		projected := "-"
		switch {
		case p.Unreachable:
			projected = "unreachable"
		case p.ProjectedDate != nil:
			projected = p.ProjectedDate.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\t%s\t%d\t\n",
			p.Name, strings.ToUpper(string(p.Status)),
			amount(p.CurrentValue, c.currency), amount(p.TargetAmount, c.currency),
			p.ProgressRatio.Shift(2).StringFixed(1), projected, p.DaysLeft)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
