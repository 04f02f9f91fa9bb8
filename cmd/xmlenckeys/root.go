// Command xmlenckeys is a companion CLI for managing the keys a
// KeysManager resolves at runtime: loading PEM keys into an XML Keys
// document, and inspecting an EncryptedData/EncryptedKey document (its
// root element, Id, Type and child element names). Structured after the
// teacher pack's cobra-based
// CLIs (Picocrypt-NG, guided-traffic-s3-encryption-proxy, luxfi/cli).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readium/xmlenc/config"
)

// version is set by the release build via -ldflags.
var version = "dev"

var cfgFile string

// engineConfig is populated by initConfig once cfgFile is known; initConfig
// then installs its S3 credentials via ApplyS3Credentials.
var engineConfig = config.Default()

var rootCmd = &cobra.Command{
	Use:     "xmlenckeys",
	Short:   "Manage keys for the xmlenc encryption engine",
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to xmlenc engine configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "xmlenckeys: reading config:", err)
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "xmlenckeys: loading engine configuration:", err)
		} else {
			engineConfig = cfg
		}
	}
	engineConfig.ApplyS3Credentials()
	viper.SetEnvPrefix("XMLENC")
	viper.AutomaticEnv()
}

func newLogger() *logrus.Entry {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(viper.GetString("log.level")); err == nil {
		log.SetLevel(lvl)
	}
	return logrus.NewEntry(log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
