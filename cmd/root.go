package cmd

import (
	"context"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rominator/internal/downloads"
	"github.com/tanq16/rominator/internal/output"
	"github.com/tanq16/rominator/internal/utils"
)

var (
	configPath    string
	debug         bool
	logFile       string
	timeout       time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	maxRunning    int
)

var RominatorVersion = "dev"

var rootCmd = &cobra.Command{
	Use:           "rominator",
	Short:         "Rominator searches ROM catalogs and downloads the results",
	Version:       RominatorVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closer, err := utils.InitLogger(debug, logFile)
		if err != nil {
			return fmt.Errorf("error opening log file: %v", err)
		}
		cobra.OnFinalize(func() { closer.Close() })
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.PrintError(fmt.Sprintf("Error: %v", err))
		stop()
		os.Exit(1)
	}
}

// httpConfig turns the persistent flags into a client configuration.
func httpConfig() utils.HTTPClientConfig {
	ua := userAgent
	if ua == "randomize" {
		ua = utils.GetRandomUserAgent()
	}
	proxy, user, pass := proxyURL, proxyUsername, proxyPassword
	parsedProxy, err := u.Parse(proxy)
	if err == nil && parsedProxy.User != nil && user == "" {
		user = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			pass = password
		}
		parsedProxy.User = nil
		proxy = parsedProxy.String()
	}
	return utils.HTTPClientConfig{
		Timeout:       timeout,
		ProxyURL:      proxy,
		ProxyUsername: user,
		ProxyPassword: pass,
		UserAgent:     ua,
		Headers:       utils.ParseHeaderArgs(headers),
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default $XDG_CONFIG_HOME/rominator/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (bare flag uses "+utils.LogFile+")")
	rootCmd.PersistentFlags().Lookup("log-file").NoOptDefVal = utils.LogFile
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", utils.DefaultRequestTimeout, "Per-request timeout for catalog requests (eg. 5s, 1m)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Referer: https://example.com'); can be specified multiple times")
	rootCmd.PersistentFlags().IntVar(&maxRunning, "max-running", 0, fmt.Sprintf("Concurrent downloads (default from config, else %d)", downloads.DefaultMaxRunning))

	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newSourcesCmd())
	rootCmd.AddCommand(newPlatformsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCleanCmd())
}
