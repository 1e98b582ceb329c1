package commands

import (
	"fmt"

	"utprint/lib/configstore"
	"utprint/lib/report"
	"utprint/lib/textutil"

	"github.com/spf13/cobra"
)

var configKeys = []string{"color", "sides"}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Shows or changes the default print options.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Prints the saved defaults.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := c.store.Load()
			if err != nil {
				return err
			}
			report.New(c.out).Config(c.store.Path(), config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <color|sides> <value>",
		Short: "Changes a saved default.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := textutil.OneOf(args[0], configKeys)
			if !ok {
				return invalidChoice("key", args[0], configKeys)
			}

			var update func(configstore.Config) configstore.Config
			switch key {
			case "color":
				color, err := parseColor(args[1])
				if err != nil {
					return err
				}
				update = func(config configstore.Config) configstore.Config {
					config.Color = color
					return config
				}
			case "sides":
				sides, err := parseSides(args[1])
				if err != nil {
					return err
				}
				update = func(config configstore.Config) configstore.Config {
					config.Sides = sides
					return config
				}
			}

			config, err := c.store.Update(update)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Saved defaults: color %s, sides %d\n", config.Color, config.Sides)
			return nil
		},
	})

	return cmd
}
