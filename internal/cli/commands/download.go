package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// DownloadOptions holds options for the download command.
type DownloadOptions struct {
	Dest  string
	Force bool
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	opts := &DownloadOptions{}

	cmd := &cobra.Command{
		Use:   "download <filename>",
		Short: "Download a prediction artifact",
		Long: `Download a spreadsheet produced by a prediction run, such as the batch
summary file named in 'korika results'.`,
		Example: `  korika download batch_summary_20240301.xlsx
  korika download batch_summary_20240301.xlsx --dest reports/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Dest, "dest", "d", "", "Destination file or directory (default: current directory)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing file")

	return cmd
}

// downloadTarget resolves where an artifact is written.
func downloadTarget(filename, dest string) string {
	name := filepath.Base(filename)
	if dest == "" {
		return name
	}
	if strings.HasSuffix(dest, string(os.PathSeparator)) || strings.HasSuffix(dest, "/") {
		return filepath.Join(dest, name)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, name)
	}
	return dest
}

func runDownload(cmd *cobra.Command, filename string, opts *DownloadOptions) (err error) {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename is required")
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	target := downloadTarget(filename, opts.Dest)
	if !opts.Force {
		if _, statErr := os.Stat(target); statErr == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", target)
		}
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".korika-download-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := cc.Client.DownloadPrediction(cmd.Context(), filename, tmp)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	cc.Renderer.Success(fmt.Sprintf("Saved %s (%d bytes)", target, n))
	return nil
}
