package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srdjan/ope"
)

func newEnhanceCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "enhance <prompt>",
		Short: "Show the rule-based enhancement of a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return ope.ErrEmptyPrompt
			}
			result := a.svc.Enhancer().Enhance(prompt, ope.EnhanceRules)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ope.FormatEnhancementSummary(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the enhancement result as JSON")
	return cmd
}

func newCompileCmd(a *app) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "compile <prompt>",
		Short: "Compile a prompt without calling a model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := a.svc.Prepare(cmd.Context(), flags.request(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.asJSON {
				return writeJSON(out, cr)
			}
			fmt.Fprintln(out, "=== SYSTEM ===")
			fmt.Fprintln(out, cr.Compiled.System)
			fmt.Fprintln(out, "\n=== USER ===")
			fmt.Fprintln(out, cr.Compiled.User)
			fmt.Fprintf(out, "\n=== DECODING ===\ntemperature=%g maxTokens=%d\n",
				cr.Compiled.Decoding.Temperature, cr.Compiled.Decoding.MaxTokens)
			fmt.Fprintf(out, "route=%s/%s", cr.Route.AdapterName, cr.Route.ModelID)
			if id := cr.ContextID(); id != "" {
				fmt.Fprintf(out, " context=%s", id)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newContextsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the usable context overlays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, id := range a.overlays.List() {
				fmt.Fprintln(out, id)
			}
			for _, rejected := range a.overlays.Rejected() {
				fmt.Fprintf(out, "%s (rejected: %s on %s)\n", rejected.ID, rejected.Kind, rejected.Field)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema every reply is validated against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ope.OutputJSONSchema())
			return nil
		},
	}
}
