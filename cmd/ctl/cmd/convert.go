package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/logging"
	"github.com/jpfielding/mado.go/pkg/mado"
	"github.com/spf13/cobra"
)

// NewToFHIRCmd converts a KOS Part 10 file into a FHIR document bundle
func NewToFHIRCmd(ctx context.Context, s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tofhir",
		Short: "convert a KOS manifest to a FHIR document bundle",
		Long:  "Reads a DICOM Key Object Selection file and writes the equivalent FHIR R4 document Bundle as JSON. Mapping notes are logged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, uri, err := readInput(ctx, cmd, args)
			if err != nil {
				return err
			}
			ctx := logging.AppendCtx(ctx, slog.String("input", uri))
			ds, err := dicom.ReadBuffer(data)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			conv, err := mado.New(s.cfg.MapperOptions(logging.FromCtx(ctx, s.log))...).Convert(ds)
			if err != nil {
				return err
			}
			for _, n := range conv.Notes.Findings {
				s.log.InfoContext(ctx, "mapping note", "severity", n.Severity, "code", n.Code, "path", n.Path, "message", n.Message)
			}
			w, done, err := output(cmd)
			if err != nil {
				return err
			}
			if err := fhir.Encode(w, conv.Bundle); err != nil {
				done()
				return err
			}
			s.log.InfoContext(ctx, "converted", "result", conv.String())
			return done()
		},
	}
	inputFlags(cmd)
	f := cmd.Flags()
	f.StringP("out", "o", "", "bundle output path (default stdout)")
	f.Bool("deterministic", true, "derive resource ids from DICOM UIDs")
	f.String("default-manufacturer", mado.DefaultManufacturer, "Device manufacturer when none is recorded")
	f.String("default-institution", mado.DefaultInstitution, "Device owner when no institution is recorded")
	f.String("default-software-version", mado.DefaultSoftwareVersion, "Device version when none is recorded")
	return cmd
}

// NewToDICOMCmd converts a FHIR document bundle back into a KOS Part 10 file
func NewToDICOMCmd(ctx context.Context, s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todicom",
		Short: "convert a FHIR document bundle to a KOS manifest",
		Long:  "Reads a FHIR R4 document Bundle produced by tofhir (or a compatible MADO bundle) and writes a DICOM Key Object Selection Part 10 file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, uri, err := readInput(ctx, cmd, args)
			if err != nil {
				return err
			}
			ctx := logging.AppendCtx(ctx, slog.String("input", uri))
			b, err := fhir.Decode(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			ds, err := mado.New(s.cfg.MapperOptions(logging.FromCtx(ctx, s.log))...).ToDataset(b)
			if err != nil {
				return err
			}
			w, done, err := output(cmd)
			if err != nil {
				return err
			}
			n, err := dicom.Write(w, ds)
			if err != nil {
				done()
				return err
			}
			s.log.InfoContext(ctx, "converted", "bytes", n, "elements", len(ds.Elements))
			return done()
		},
	}
	inputFlags(cmd)
	f := cmd.Flags()
	f.StringP("out", "o", "", "Part 10 output path (default stdout)")
	f.Bool("deterministic", true, "derive generated UIDs from resource ids")
	return cmd
}
