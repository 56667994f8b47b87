package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v as JSON when --json is set, otherwise the rendered text.
func (c *commandContext) emit(cmd *cobra.Command, v any, render func() string) error {
	if c.jsonOutput {
		return writeJSON(cmd, v)
	}
	fmt.Fprint(cmd.OutOrStdout(), render())
	return nil
}
