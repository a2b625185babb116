package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/paracosm/pkg/paracosm"
	"github.com/cognicore/paracosm/pkg/paracosm/config"
	"github.com/cognicore/paracosm/pkg/paracosm/explain"
	"github.com/cognicore/paracosm/pkg/paracosm/export/prolog"
	"github.com/cognicore/paracosm/pkg/paracosm/reality"
	"github.com/cognicore/paracosm/pkg/paracosm/store/sqlite"
	"github.com/cognicore/paracosm/pkg/paracosm/thesaurus"
)

var (
	verbose       bool
	knowledgePath string
	limitsPath    string
	dbPath        string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paracosm",
	Short: "paracosm - logic engine with isolated realities and causal counterfactuals",
	Long: `paracosm is a unification-based logic engine. Facts and rules live in
named, isolated realities; each reality owns a causal graph that supports
interventions and transactional counterfactual queries.

Run without arguments to start the interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		return runREPL(eng)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [goal] [args...]",
	Short: "Resolve one goal against the active reality",
	Long: `Resolves a goal and prints an explain card with the solutions and
the facts and rules that grounded them.

Example:
  paracosm --knowledge family.yaml query ancestor alice '$Who'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the active reality as an ISO Prolog program",
	RunE:  runExport,
}

var relatedCmd = &cobra.Command{
	Use:   "related [from] [to]",
	Short: "Explore transitive term relations in the active reality",
	Long: `With one argument, lists every term reachable from it. With two,
prints the link chain between them, if any.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRelated,
}

var relation string

var saveCmd = &cobra.Command{
	Use:   "save [reality]",
	Short: "Snapshot a reality into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSave,
}

var loadCmd = &cobra.Command{
	Use:   "load [reality]",
	Short: "Restore a reality from the database and query it interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&knowledgePath, "knowledge", "k", "", "Knowledge base YAML to load")
	rootCmd.PersistentFlags().StringVar(&limitsPath, "limits", "", "Engine limits YAML")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for save/load")

	relatedCmd.Flags().StringVar(&relation, "relation", "relatedTo", "Relation predicate to follow")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildEngine assembles an engine from the global flags: limits first,
// then the knowledge base, if given.
func buildEngine() (*paracosm.Engine, error) {
	limits := config.DefaultLimits()
	if limitsPath != "" {
		var err error
		limits, err = config.LoadLimits(limitsPath)
		if err != nil {
			return nil, fmt.Errorf("load limits: %w", err)
		}
	}

	eng := paracosm.New(paracosm.Options{Limits: limits, Logger: logger})

	if knowledgePath != "" {
		k, err := config.LoadKnowledge(knowledgePath)
		if err != nil {
			return nil, fmt.Errorf("load knowledge: %w", err)
		}
		if err := eng.ApplyKnowledge(k); err != nil {
			return nil, fmt.Errorf("apply knowledge: %w", err)
		}
		logger.Debug("knowledge applied", zap.String("path", knowledgePath))
	}
	if _, ok := eng.ActiveReality(); !ok {
		if err := eng.CreateReality("default"); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}

	goal := args[0]
	rest := make([]any, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = a
	}

	res, err := eng.Query(goal, rest...)
	if err != nil {
		return err
	}

	card := explain.New().Build(goal, rest, res)
	fmt.Println(card.Render())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	r, ok := eng.ActiveReality()
	if !ok {
		return fmt.Errorf("no active reality")
	}
	fmt.Print(prolog.Render(r))
	return nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	r, ok := eng.ActiveReality()
	if !ok {
		return fmt.Errorf("no active reality")
	}

	th := thesaurus.FromReality(r, relation)
	if len(args) == 1 {
		for _, name := range th.All(args[0]) {
			fmt.Println(name)
		}
		return nil
	}
	fmt.Println(th.Explain(args[0], args[1]))
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("--db required")
	}
	eng, err := buildEngine()
	if err != nil {
		return err
	}

	snap, err := eng.SnapshotReality(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.SaveReality(ctx, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	fmt.Printf("saved reality %q (%d facts, %d rules)\n", snap.Name, len(snap.Facts), len(snap.Rules))
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("--db required")
	}

	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	snap, ok, err := st.LoadReality(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !ok {
		return fmt.Errorf("reality %q not in database", args[0])
	}

	eng := paracosm.New(paracosm.Options{Logger: logger})
	if err := eng.RestoreReality(snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return runREPL(eng)
}

// runREPL reads line-oriented commands from stdin:
//
//	assert <key> [value]
//	retract <key>
//	rule <head> <goal> [goal...]
//	query <goal> [args...]
//	intervene <node> <value>
//	state <node>
//	whatif <node>=<value> [...]
//	reality [name]
//	export
//	quit
func runREPL(eng *paracosm.Engine) error {
	fmt.Println("paracosm interactive session (quit to exit)")
	builder := explain.New()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, rest := fields[0], fields[1:]

		var err error
		switch cmd {
		case "quit", "exit":
			return nil
		case "assert":
			err = replAssert(eng, rest)
		case "retract":
			err = replExpect(rest, 1, func() error { return eng.Retract(rest[0]) })
		case "rule":
			err = replRule(eng, rest)
		case "query":
			err = replQuery(eng, builder, rest)
		case "intervene":
			err = replExpect(rest, 2, func() error {
				return eng.Intervene(rest[0], parseValue(rest[1]))
			})
		case "state":
			err = replState(eng, rest)
		case "whatif":
			err = replWhatIf(eng, rest)
		case "reality":
			err = replReality(eng, rest)
		case "export":
			if r, ok := eng.ActiveReality(); ok {
				fmt.Print(prolog.Render(r))
			}
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			fmt.Println("Error:", err)
		}
	}
	return scanner.Err()
}

func replExpect(args []string, n int, fn func() error) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return fn()
}

func replAssert(eng *paracosm.Engine, args []string) error {
	switch len(args) {
	case 1:
		return eng.Assert(args[0], true)
	case 2:
		return eng.Assert(args[0], parseValue(args[1]))
	}
	return fmt.Errorf("usage: assert <key> [value]")
}

func replRule(eng *paracosm.Engine, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: rule <head> <goal> [goal...]")
	}
	body := make([]reality.Condition, len(args)-1)
	for i, g := range args[1:] {
		body[i] = reality.Goal(g)
	}
	return eng.AddRule(args[0], body...)
}

func replQuery(eng *paracosm.Engine, builder *explain.Builder, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: query <goal> [args...]")
	}
	rest := make([]any, len(args)-1)
	for i, a := range args[1:] {
		rest[i] = a
	}
	res, err := eng.Query(args[0], rest...)
	if err != nil {
		return err
	}
	fmt.Println(builder.Build(args[0], rest, res).Render())
	return nil
}

func replState(eng *paracosm.Engine, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: state <node>")
	}
	v, ok, err := eng.State(args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("(unknown node)")
		return nil
	}
	fmt.Printf("%s = %v\n", args[0], v)
	return nil
}

func replWhatIf(eng *paracosm.Engine, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: whatif <node>=<value> [...]")
	}
	cf, err := eng.CreateCounterfactual(strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, a := range args {
		node, val, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("malformed intervention %q", a)
		}
		cf.Intervene(node, parseValue(val))
	}
	if err := cf.Compute(); err != nil {
		return err
	}
	for node, v := range cf.Effects() {
		fmt.Printf("%s = %v\n", node, v)
	}
	return nil
}

func replReality(eng *paracosm.Engine, args []string) error {
	if len(args) == 0 {
		for _, name := range eng.Realities() {
			fmt.Println(name)
		}
		return nil
	}
	if eng.SwitchReality(args[0]) {
		return nil
	}
	if err := eng.CreateReality(args[0]); err != nil {
		return err
	}
	eng.SwitchReality(args[0])
	return nil
}

// parseValue maps REPL tokens to fact values: booleans and numbers when
// they parse, strings otherwise.
func parseValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil && fmt.Sprintf("%g", f) == s {
		return f
	}
	return s
}
