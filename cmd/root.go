package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docklite/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docklite",
	Short: "DockLite - Container hosting panel",
	Long: `DockLite provisions sites and databases as Docker containers,
organizes them into per-user folders, and exposes file management over
a jailed per-user filesystem.`,
}

func Execute(version, commit, date string) {
	BuildVersion = version
	BuildCommit = commit
	BuildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docklite.toml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docklite")
		viper.SetConfigType("toml")

		viper.AddConfigPath(".")
		if userConfigDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(userConfigDir + "/docklite")
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(homeDir + "/.docklite")
		}
		viper.AddConfigPath("/etc/docklite")
	}

	viper.SetEnvPrefix("DOCKLITE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		// An explicitly named config file must exist.
		logger.Fatal("Failed to read config file", "path", cfgFile, "error", err)
	}
}
