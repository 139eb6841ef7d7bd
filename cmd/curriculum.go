package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
)

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Browse the curriculum hierarchy",
}

var curriculumListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List domains, modules and items (optionally from a given file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path = cfg.CurriculumPath
		}
		if path == "" {
			return fmt.Errorf("no curriculum given: pass a file or set --curriculum")
		}

		g, err := curriculum.LoadFile(path)
		if err != nil {
			return err
		}
		domain, _ := cmd.Flags().GetString("domain")

		// Header.
		fmt.Printf("%-20s  %-24s  %-36s  %5s  %s\n",
			"Domain", "Module", "Name", "Items", "Optional")
		fmt.Println(strings.Repeat("─", 100))

		modules := 0
		for _, d := range g.Domains() {
			if domain != "" && d != domain {
				continue
			}
			for _, m := range g.ModulesOf(d) {
				name := g.Name(proficiency.LevelModule, m)
				if len(name) > 36 {
					name = name[:33] + "..."
				}
				fmt.Printf("%-20s  %-24s  %-36s  %5d  %s\n",
					d, m, name, len(g.ItemsOf(m)), strings.Join(g.Optional(m), ","))
				modules++
			}
		}

		fmt.Printf("\n%d modules\n", modules)
		return nil
	},
}

func init() {
	curriculumListCmd.Flags().String("domain", "", "Filter by domain ID")

	curriculumCmd.AddCommand(curriculumListCmd)
}
