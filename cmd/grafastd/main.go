// Command grafastd is grafast's operational CLI: print the version, print
// the step/layer tree planned for a query, or serve a configured gateway. Grounded on the teacher's cmd/federation-gateway/main.go
// (rootCmd/versionCmd/serveCmd wired via cobra); "init" had no federation
// analog worth keeping (see DESIGN.md) and is replaced by "plan", a debug
// command a query-planning library's CLI is more useful shipping than a
// project scaffolder.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grafast-dev/grafast/gateway"
	"github.com/grafast-dev/grafast/gql"
	"github.com/grafast-dev/grafast/plan"
	"github.com/grafast-dev/grafast/resolvers"
	"github.com/grafast-dev/grafast/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of grafast",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("grafast v0.0.0-rc")
	},
}

var (
	planSchemaFiles []string
	planQuery       string
	planOperation   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a query against a schema and print its step/layer tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdl, err := concatFiles(planSchemaFiles)
		if err != nil {
			return err
		}
		schema, err := gql.LoadSchema("cli", sdl)
		if err != nil {
			return err
		}
		doc, err := gql.Parse(schema, planQuery, planOperation, nil)
		if err != nil {
			return err
		}

		planner := plan.NewPlanner(debugTable(schema))
		op, err := planner.Plan(doc)
		if err != nil {
			return err
		}
		if err := plan.NewOptimizer().Run(op); err != nil {
			return err
		}

		printPlan(op)
		return nil
	},
}

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the grafast gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := gateway.LoadConfig(configPath)
		if err != nil {
			return err
		}
		sdl, err := cfg.ReadSchemaFiles()
		if err != nil {
			return err
		}
		schema, err := gql.LoadSchema(cfg.ServiceName, sdl)
		if err != nil {
			return err
		}
		return server.Run(cfg, debugTable(schema), nil)
	},
}

func concatFiles(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("reading schema file %q: %w", p, err)
		}
		b.Write(src)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// debugTable builds a resolvers.Table that resolves every object field by
// reading it off its parent's value (resolvers.AccessResolver), enough to
// plan (and, against map[string]any-shaped data, execute) any query without
// hand-written field wiring. Intended for "plan"'s static analysis and as
// "serve"'s default when no application supplies its own table.
func debugTable(schema *gql.Schema) *resolvers.Table {
	table := resolvers.NewTable()
	for name, def := range schema.Raw().Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		for _, f := range def.Fields {
			if _, ok := table.Lookup(name, f.Name); !ok {
				table.Register(name, f.Name, resolvers.AccessResolver(f.Name))
			}
		}
	}
	return table
}

func printPlan(op *plan.OperationPlan) {
	var walk func(l *plan.LayerPlan, depth int)
	walk = func(l *plan.LayerPlan, depth int) {
		indent := strings.Repeat("  ", depth)
		fmt.Printf("%slayer %d (%s) %s\n", indent, l.ID(), l.Kind(), l.Reason())
		for _, id := range l.Steps() {
			if s := op.Step(id); s != nil {
				fmt.Printf("%s  step %d: %s\n", indent, s.ID(), s.Kind())
			}
		}
		for _, child := range l.Children() {
			walk(child, depth+1)
		}
	}
	walk(op.RootLayer(), 0)
}

func main() {
	planCmd.Flags().StringSliceVarP(&planSchemaFiles, "schema", "s", nil, "schema file(s) to load")
	planCmd.Flags().StringVarP(&planQuery, "query", "q", "", "query document to plan")
	planCmd.Flags().StringVar(&planOperation, "operation", "", "operation name, required if the document defines more than one")
	planCmd.MarkFlagRequired("schema") //nolint:errcheck
	planCmd.MarkFlagRequired("query")  //nolint:errcheck

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "grafast.yaml", "path to the gateway config file")

	rootCmd := &cobra.Command{Use: "grafastd"}
	rootCmd.AddCommand(versionCmd, planCmd, serveCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
