package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jsonsmoke/internal/config"
)

var forceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the jsonsmoke configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the workspace",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotationSettings: "skip",
	},
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config, including environment overrides",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config")
	configCmd.AddCommand(configInitCmd, configShowCmd)
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath(workspaceDir())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile()
	if _, err := os.Stat(path); err == nil && !(flagChanged(cmd, "force") && forceFlag) {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Println(defaultStyles.Status(true, "wrote "+path))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if err := loadSettings(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(defaultStyles.Muted.Render("# " + configFile()))
	fmt.Print(string(data))
	return nil
}
