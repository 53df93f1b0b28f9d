package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/workflow"
)

// RulesOptions holds flags for the rules commands.
type RulesOptions struct {
	*RootOptions
	RulesPath string
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect naming-convention rules",
	}

	cmd.PersistentFlags().StringVar(&opts.RulesPath, "rules", "", "path to a YAML naming rules file (built-in rules when empty)")

	cmd.AddCommand(newRulesListCommand(opts))
	cmd.AddCommand(newRulesResolveCommand(opts))

	return cmd
}

func newRulesListCommand(opts *RulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the active rules per filename prefix",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := workflow.NewResolverFromFile(opts.RulesPath)
			if err != nil {
				return err
			}

			rules := resolver.AllRules()
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rules)
			}

			prefixes := make([]string, 0, len(rules))
			for prefix := range rules {
				prefixes = append(prefixes, prefix)
			}
			sort.Strings(prefixes)

			for _, prefix := range prefixes {
				rule := rules[prefix]
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %-12s %s\n",
					prefix, rule.Icon, strings.Join(rule.Processes, ", "))
			}
			return nil
		},
	}
}

func newRulesResolveCommand(opts *RulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resolve <filename>",
		Short:         "Show how a filename parses and which workflow it gets",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := workflow.NewResolverFromFile(opts.RulesPath)
			if err != nil {
				return err
			}

			res := resolver.Resolve(args[0])
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "prefix:    %s\n", res.Prefix)
			fmt.Fprintf(out, "material:  %s\n", res.MaterialName)
			if res.Attribute != "" {
				fmt.Fprintf(out, "attribute: %s\n", res.Attribute)
			}
			if res.Version != "" {
				fmt.Fprintf(out, "version:   %s\n", res.Version)
			}
			if res.TextureSuffix != "" {
				fmt.Fprintf(out, "texture:   %s (%s)\n", res.TextureSuffix, res.TextureInfo.Name)
			}
			fmt.Fprintf(out, "type:      %s\n", res.ResourceType)
			fmt.Fprintf(out, "processes: %s\n", strings.Join(res.Processes, ", "))
			return nil
		},
	}
}
