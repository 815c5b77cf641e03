package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eddmann/repyx/internal/home"
	"github.com/eddmann/repyx/internal/restrictions"
	"github.com/spf13/cobra"
)

var restrictionsCmd = &cobra.Command{
	Use:   "restrictions",
	Short: "Inspect restrictions policies",
	Long: `View restrictions policies. Builtins ship with repyx; user policies
live in ~/.repyx/restrictions/<name>.toml and take precedence over a
builtin of the same name.`,
}

var restrictionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List builtin and user restrictions",
	RunE:  restrictionsList,
}

var restrictionsShowCmd = &cobra.Command{
	Use:   "show [name|file]",
	Short: "Describe a restrictions policy",
	Args:  cobra.MaximumNArgs(1),
	RunE:  restrictionsShow,
}

func init() {
	restrictionsCmd.AddCommand(restrictionsListCmd)
	restrictionsCmd.AddCommand(restrictionsShowCmd)
	rootCmd.AddCommand(restrictionsCmd)
}

func restrictionsList(cmd *cobra.Command, args []string) error {
	fmt.Println("Builtin:")
	for _, name := range restrictions.Builtins() {
		fmt.Printf("  %s\n", name)
	}

	dir, err := home.RestrictionsDir()
	if err != nil {
		return err
	}
	if !home.Exists(dir) {
		logf("No user restrictions in %s", dir)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read restrictions directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".toml" {
			names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Printf("User (%s):\n", dir)
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func restrictionsShow(cmd *cobra.Command, args []string) error {
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}
	p, err := restrictions.Load(ref)
	if err != nil {
		return err
	}
	fmt.Print(p.Summary())
	return nil
}
