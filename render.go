package main

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/charsheet/backend"
	"github.com/kasuganosora/charsheet/render"
	"github.com/spf13/cobra"
)

var renderJSON bool

var renderCmd = &cobra.Command{
	Use:   "render <character-id>",
	Short: "Fetch a character from the backend and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "print the display tree as JSON")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	data, err := client.FetchCharacter(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	tree := render.Render(data.Character, data.Character.Name)
	out := cmd.OutOrStdout()
	if renderJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}
	if err := render.WriteText(out, tree); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
