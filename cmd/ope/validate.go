package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srdjan/ope"
)

func newValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [text]",
		Short: "Validate and repair a model reply",
		Long:  "Validate reads the reply from the argument, or from stdin when the argument is absent or \"-\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := replyText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			result := ope.Validate(text)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"output":     result.Value,
				"validation": result.Meta(),
			})
		},
	}
}

func replyText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
