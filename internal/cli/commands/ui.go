package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/ui"
	"github.com/oojn4/korika/internal/ui/features/dashboard"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the batch prediction results dashboard",
		Long: `Start a local web server with the batch prediction results dashboard.

The dashboard shows the latest stored batch with search, facility filter,
pagination and column groups. The Generate button runs a new batch
prediction; batches stored by 'korika predict-all' in another terminal
appear without a reload while --watch is on.`,
		Example: `  # Start the dashboard on the default port
  korika ui

  # Start on a custom port
  korika ui --port 3000

  # Start without auto-opening the browser
  korika ui --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultUIPort))
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Refresh when the batch history changes on disk")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cc.Cfg

	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := cfg.UI.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	secret := cfg.UI.SessionSecret
	if secret == "" {
		secret, err = generateSessionSecret()
		if err != nil {
			return err
		}
	}

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	defaults := dashboard.ViewState{PageSize: cfg.Results.PageSize}
	if g, err := prediction.ParseGroup(cfg.Results.Group); err == nil {
		defaults.Group = g
	}

	server := ui.NewServer(ui.Config{
		Service:       cc.Client,
		Store:         store,
		StatePath:     store.Path(),
		Port:          port,
		Watch:         watch,
		SessionSecret: secret,
		Defaults:      defaults,
		Logger:        cc.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", port)
	if autoOpen {
		go openBrowser(url)
	}

	r := cc.Renderer
	r.Printf("Serving dashboard on %s\n", url)
	r.Muted("prediction service: " + cc.Client.BaseURL())
	r.Muted("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// generateSessionSecret returns a random secret for this server run.
// Sessions do not survive a restart unless ui.session_secret is set.
func generateSessionSecret() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", fmt.Errorf("failed to generate session secret")
	}
	return hex.EncodeToString(b), nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
