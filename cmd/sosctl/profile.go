package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/pprof/profile"
	"github.com/spf13/cobra"

	"sos/config"
)

// profileCmd prints the top allocation sites from sos's periodically
// refreshed heap profile, parsed with google/pprof's own profile
// decoder rather than re-implementing the pprof wire format.
func profileCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show top heap allocation sites from a running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boot, err := config.Load(configPath)
			if err != nil {
				return err
			}
			path := boot.Status.Path + ".heap.pprof"
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s (is sos running?): %w", path, err)
			}
			defer f.Close()

			prof, err := profile.Parse(f)
			if err != nil {
				return fmt.Errorf("parsing heap profile: %w", err)
			}

			valueIdx := 0
			for i, st := range prof.SampleType {
				if st.Type == "inuse_space" {
					valueIdx = i
					break
				}
			}

			type site struct {
				name  string
				bytes int64
			}
			var sites []site
			for _, s := range prof.Sample {
				if len(s.Value) <= valueIdx || len(s.Location) == 0 {
					continue
				}
				loc := s.Location[0]
				name := "?"
				if len(loc.Line) > 0 && loc.Line[0].Function != nil {
					name = loc.Line[0].Function.Name
				}
				sites = append(sites, site{name: name, bytes: s.Value[valueIdx]})
			}
			sort.Slice(sites, func(i, j int) bool { return sites[i].bytes > sites[j].bytes })

			if top <= 0 || top > len(sites) {
				top = len(sites)
			}
			fmt.Fprintln(cmd.OutOrStdout(), headingStyle.Render("top heap allocation sites"))
			for _, s := range sites[:top] {
				fmt.Fprintf(cmd.OutOrStdout(), "%10d bytes  %s\n", s.bytes, s.name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of allocation sites to show")
	return cmd
}
