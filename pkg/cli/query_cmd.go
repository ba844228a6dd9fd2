package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cubeclient/client"
	"cubeclient/domain"
	"cubeclient/internal/config"
)

func newQueryCmd(host, token *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Execute a query from a file",
		Long: `Loads a query definition from a YAML or JSON file, executes it against
the configured semantic-layer host, polling until the result is ready, and
prints the rows.`,
		Example: `  cube query -f revenue.yaml
  cube query -f revenue.json --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			q, err := LoadQueryFile(file)
			if err != nil {
				return err
			}

			creds, err := domain.NewCredentials(*token, *host)
			if err != nil {
				return err
			}

			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			opts := append(client.FromConfig(cfg), client.WithLogger(logger))
			c, err := client.New(opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			result, err := c.Execute(ctx, creds, q)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, result)
			}
			printResultTable(os.Stdout, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the query file (YAML or JSON)")

	return cmd
}

// LoadQueryFile reads a query definition from a YAML or JSON file. YAML is
// converted through JSON so both formats share one decoding path and the
// same field names as the wire format.
func LoadQueryFile(path string) (*domain.Query, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse query file: %w", err)
		}
		data, err = json.Marshal(normalizeYAML(raw))
		if err != nil {
			return nil, fmt.Errorf("convert query file: %w", err)
		}
	}

	var q domain.Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("parse query file: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// normalizeYAML rewrites yaml.v3's map[string]any/any trees into
// json.Marshal-compatible values.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}

// printResultTable renders rows as a fixed-width table with columns sorted
// by name for stable output.
func printResultTable(w *os.File, result *domain.QueryResult) {
	if len(result.Data) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	columns := make([]string, 0)
	seen := map[string]bool{}
	for _, row := range result.Data {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(result.Data))
	for _, row := range result.Data {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, cells)
	}
	printTable(w, columns, rows)
}
