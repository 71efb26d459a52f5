package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cyrogem/nodedialogue/pkg/asset"
	"github.com/cyrogem/nodedialogue/pkg/editor"
)

// editCommand opens the terminal editor on a dialogue file. A missing file
// starts a new dialogue that "w" writes to that path.
func (c *CLI) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a dialogue in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			// The editor still works on files when the store is unreachable.
			s, err := c.openStore(ctx)
			if err != nil {
				c.Logger.Warn("store unavailable; save and load disabled", "error", err)
			} else {
				defer s.Close()
			}

			ed := editor.New(s, c.Logger)
			name := ""
			if path != "" {
				if _, statErr := os.Stat(path); statErr == nil {
					g, stored, err := asset.ReadFile(path)
					if err != nil {
						return err
					}
					ed.Open(g, "")
					name = stored
				} else if _, err := asset.FormatFromPath(path); err != nil {
					return err
				}
			}

			opts, err := c.assetOptions(name)
			if err != nil {
				return err
			}
			// Info lines would tear the alternate screen.
			level := c.Logger.GetLevel()
			c.Logger.SetLevel(log.ErrorLevel)
			defer c.Logger.SetLevel(level)

			p := tea.NewProgram(NewEditorModel(ctx, ed, path, opts), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}
}
