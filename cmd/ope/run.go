package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srdjan/ope"
)

// requestFlags are shared by run, compile and enhance.
type requestFlags struct {
	task      string
	context   string
	hint      string
	noEnhance bool
	asJSON    bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.task, "task", "t", "", "task type: qa, extract or summarize (default qa)")
	cmd.Flags().StringVar(&f.context, "context", "", "context overlay to apply")
	cmd.Flags().StringVar(&f.hint, "hint", "", "target hint: local or cloud")
	cmd.Flags().BoolVar(&f.noEnhance, "no-enhance", false, "skip rule-based enhancement")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the full result as JSON")
}

func (f *requestFlags) request(args []string) ope.Request {
	req := ope.Request{
		RawPrompt:  strings.Join(args, " "),
		TaskType:   ope.TaskType(f.task),
		TargetHint: ope.Hint(f.hint),
		Context:    f.context,
	}
	if f.noEnhance {
		req.Enhance = ope.EnhanceNone
	}
	return req
}

func newRunCmd(a *app) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a prompt through the full pipeline",
		Example: `  ope run --mock "What is Kubernetes?"
  ope run --context legal "Can my landlord keep the deposit?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.svc.Execute(cmd.Context(), flags.request(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.asJSON {
				return writeJSON(out, resp)
			}
			printResponse(out, resp)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printResponse(w io.Writer, resp *ope.Response) {
	if resp.Meta.Display != "" {
		fmt.Fprintln(w, resp.Meta.Display)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, resp.Output.Answer)
	if len(resp.Output.Citations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Citations:")
		for _, c := range resp.Output.Citations {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}
	fmt.Fprintf(w, "\n[%s/%s", resp.Meta.Adapter, resp.Meta.Model)
	if resp.Meta.Context != "" {
		fmt.Fprintf(w, ", context=%s", resp.Meta.Context)
	}
	if resp.Meta.Validation.WasRepaired {
		fmt.Fprintf(w, ", repaired=%s", *resp.Meta.Validation.ErrorKind)
	}
	fmt.Fprintln(w, "]")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
