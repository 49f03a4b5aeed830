// Package commands holds the cobra commands of the whsm binary.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigbrett/wolfHSM/whsm"
	"github.com/bigbrett/wolfHSM/whsm/config"
)

func InitRootFlags(rootCmd *cobra.Command) {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to a JSON settings file")
	pf.String("transport", "", "override transport: mem, quic or grpc")
	pf.String("address", "", "override module address")
	pf.Int("mtu", 0, "override packet MTU")
	pf.Bool("compress", false, "lz4 compress QUIC payloads")
	pf.String("pin-sha256", "", "expected QUIC module certificate fingerprint in hex")
	pf.String("log-level", "", "override log level: debug, info, warning, error")
}

// loadSettings reads --config, or starts from defaults, then applies the
// override flags that were set.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := cmd.Flags()
	s := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Settings{}, err
		}
		s = loaded
	}
	if v, _ := flags.GetString("transport"); v != "" {
		s.Transport = v
	}
	if v, _ := flags.GetString("address"); v != "" {
		s.Address = v
	}
	if v, _ := flags.GetInt("mtu"); v != 0 {
		s.MTU = v
	}
	if v, _ := flags.GetString("pin-sha256"); v != "" {
		s.PinSHA256 = v
	}
	if flags.Changed("compress") {
		s.Compress, _ = flags.GetBool("compress")
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		s.Log.LogLevel = v
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, err
	}
	return s, nil
}

func setupLogger(s config.Settings) (*slog.Logger, io.Closer, error) {
	logger, closer, err := config.NewLogger(s.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return logger, closer, nil
}

// withClient opens the configured module and runs fn against it.
func withClient(cmd *cobra.Command, fn func(*whsm.Client) error) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := setupLogger(s)
	if err != nil {
		return err
	}
	defer closer.Close()

	c, err := whsm.Open(context.Background(), s, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
