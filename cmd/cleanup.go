package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"omniclick/internal/vision"
)

func newCleanupCommand(rootOpts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cleanup-templates",
		Short: "Remove temporary template captures",
		Long: `Remove every temp_template_* image left behind by template captures.

Uses the template directory from the settings file unless --dir is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfgMgr, err := openConfig(rootOpts)
				if err != nil {
					return err
				}
				if err := cfgMgr.Load(); err != nil {
					return err
				}
				dir = cfgMgr.Get().TemplateDir
			}
			n, err := vision.NewTemplateStore(dir).Cleanup()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d temporary templates\n", n)
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding temporary templates")
	return cmd
}
