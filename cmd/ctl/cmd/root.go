package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/jpfielding/mado.go/pkg/config"
	"github.com/spf13/cobra"
)

// session is what PersistentPreRunE resolves for the subcommands
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	closer io.Closer
}

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	s := &session{}
	cmd := &cobra.Command{
		Use:          "madoctl",
		Short:        "convert and validate DICOM Key Object Selection manifests",
		Long:         "madoctl maps IHE MADO Key Object Selection manifests to FHIR document bundles and back, and checks them against the KOS content rules",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			s.cfg = cfg
			s.log, s.closer = cfg.Logger(cmd.ErrOrStderr())
			slog.SetDefault(s.log)
			s.log.DebugContext(ctx, "configured", "deterministic", cfg.Deterministic, "allow-duplicates", cfg.AllowDuplicates)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if s.closer != nil {
				return s.closer.Close()
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewToFHIRCmd(ctx, s),
		NewToDICOMCmd(ctx, s),
		NewValidateCmd(ctx, s),
		NewDumpCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String(config.KeyLogLevel, "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String(config.KeyLogFormat, "text", "Log format (text|json)")
	pf.String(config.KeyLogFile, "", "rotate logs into this file instead of stderr")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// inputFlags registers the source flags shared by the reading commands
func inputFlags(cmd *cobra.Command) {
	pf := cmd.Flags()
	pf.StringP("uri", "u", "", "input path, file:// or http(s) URL, or - for stdin")
	pf.Bool("insecure", false, "skip TLS verification for http(s) inputs")
	pf.Bool("verbose", false, "dump the http exchange to stderr")
}

// readInput loads the --uri flag, or the first argument
func readInput(ctx context.Context, cmd *cobra.Command, args []string) ([]byte, string, error) {
	uri, _ := cmd.Flags().GetString("uri")
	if uri == "" && len(args) > 0 {
		uri = args[0]
	}
	if uri == "" {
		return nil, "", fmt.Errorf("input is required. Use --uri or provide as argument")
	}
	uri = strings.TrimPrefix(uri, "file://")
	var in io.Reader
	switch {
	case uri == "-":
		in = cmd.InOrStdin()
	case strings.HasPrefix(uri, "http"):
		insecure, _ := cmd.Flags().GetBool("insecure")
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, uri, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, uri, fmt.Errorf("failed to download: %w", err)
		}
		defer resp.Body.Close()
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			cmd.ErrOrStderr().Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			cmd.ErrOrStderr().Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, uri, fmt.Errorf("failed to download: %s", resp.Status)
		}
		in = resp.Body
	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, uri, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, uri, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return data, uri, nil
}

// output opens --out, or stdout
func output(cmd *cobra.Command) (io.Writer, func() error, error) {
	out, _ := cmd.Flags().GetString("out")
	if out == "" || out == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", out, err)
	}
	return f, f.Close, nil
}
