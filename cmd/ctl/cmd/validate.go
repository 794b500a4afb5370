package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/logging"
	"github.com/jpfielding/mado.go/pkg/mado"
	"github.com/jpfielding/mado.go/pkg/report"
	"github.com/jpfielding/mado.go/pkg/validate"
	"github.com/spf13/cobra"
)

// ErrInvalid is returned when validation reports any error
var ErrInvalid = errors.New("manifest failed validation")

// NewValidateCmd checks a KOS file, or a bundle through its reverse mapping
func NewValidateCmd(ctx context.Context, s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "check a KOS manifest against the content and evidence rules",
		Long:  "Validates a DICOM Key Object Selection file, or with --bundle a FHIR document bundle mapped back to a manifest. Exits non-zero when any error is reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, uri, err := readInput(ctx, cmd, args)
			if err != nil {
				return err
			}
			ctx := logging.AppendCtx(ctx, slog.String("input", uri))
			v := validate.New(s.cfg.ValidatorOptions()...)

			var res *report.Result
			if bundle, _ := cmd.Flags().GetBool("bundle"); bundle {
				b, err := fhir.Decode(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("parse error: %w", err)
				}
				m, err := mado.New(s.cfg.MapperOptions(logging.FromCtx(ctx, s.log))...).ToManifest(b)
				if err != nil {
					return err
				}
				res = v.Validate(m)
			} else {
				ds, err := dicom.ReadBuffer(data)
				if err != nil {
					return fmt.Errorf("parse error: %w", err)
				}
				if res, err = v.ValidateDataset(ds); err != nil {
					return err
				}
			}

			w, done, err := output(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if err := writeResult(w, res, format); err != nil {
				done()
				return err
			}
			if err := done(); err != nil {
				return err
			}
			s.log.InfoContext(ctx, "validated", "summary", res.Summary())
			if res.HasErrors() {
				return ErrInvalid
			}
			return nil
		},
	}
	inputFlags(cmd)
	f := cmd.Flags()
	f.StringP("format", "f", "text", "report format (text|json|outcome)")
	f.StringP("out", "o", "", "report output path (default stdout)")
	f.Bool("bundle", false, "input is a FHIR document bundle")
	f.Bool("allow-duplicates", false, "permit an instance to be referenced more than once")
	return cmd
}

func writeResult(w io.Writer, res *report.Result, format string) error {
	switch format {
	case "text":
		return res.WriteText(w)
	case "json":
		return res.WriteJSON(w)
	case "outcome":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.OperationOutcome())
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
