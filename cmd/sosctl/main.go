// Command sosctl is SOS's operator tool: "config" shows the resolved
// boot configuration and "config init" writes a default one, "status"
// renders that configuration as a lipgloss table, "prime-swap"
// pre-touches the swap file, "watch" polls the status file a running
// instance writes, and "profile" summarises a heap profile.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"sos/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "sosctl",
		Short: "Operator tool for a SOS root-task instance",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "sos.toml", "boot configuration file")
	root.AddCommand(configCmd(), statusCmd(), primeCmd(), watchCmd(), profileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved boot configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "memory.frame_count = %d\n", b.Memory.FrameCount)
			fmt.Fprintf(cmd.OutOrStdout(), "swap.path = %s\n", b.Swap.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "swap.slots = %d\n", b.Swap.Slots)
			fmt.Fprintf(cmd.OutOrStdout(), "limits.max_procs = %d\n", b.Limits.MaxProcs)
			fmt.Fprintf(cmd.OutOrStdout(), "limits.max_frames = %d\n", b.Limits.MaxFrames)
			fmt.Fprintf(cmd.OutOrStdout(), "log.level = %s\n", b.Log.Level)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default sos.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	})
	return cmd
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the resolved configuration a running instance would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), headingStyle.Render("SOS boot configuration"))
			row := func(label, value string) {
				fmt.Fprintln(cmd.OutOrStdout(), labelStyle.Render(label)+value)
			}
			row("frames", fmt.Sprintf("%d", b.Memory.FrameCount))
			row("swap slots", fmt.Sprintf("%d", b.Swap.Slots))
			row("swap path", b.Swap.Path)
			row("max procs", fmt.Sprintf("%d", b.Limits.MaxProcs))
			return nil
		},
	}
}

// primeCmd exercises progressbar for a cosmetic but real piece of
// work: touching every slot of a freshly created swap file so the
// first page-out an operator triggers isn't slowed by the
// filesystem's lazy block allocation.
func primeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prime-swap",
		Short: "Pre-touch the configured swap file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := config.Load(configPath)
			if err != nil {
				return err
			}
			f, err := os.OpenFile(b.Swap.Path, os.O_RDWR|os.O_CREATE, 0o600)
			if err != nil {
				return err
			}
			defer f.Close()
			bar := progressbar.Default(int64(b.Swap.Slots), "priming swap")
			buf := make([]byte, 4096+4)
			for i := 0; i < b.Swap.Slots; i++ {
				if _, err := f.WriteAt(buf, int64(i)*int64(len(buf))); err != nil {
					return err
				}
				bar.Add(1)
			}
			return bar.Close()
		},
	}
}
