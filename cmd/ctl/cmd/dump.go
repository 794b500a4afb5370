package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/sr"
	"github.com/spf13/cobra"
)

// NewDumpCmd prints the elements of a Part 10 file, or the manifest it carries
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "print a DICOM file",
		Long:  "Parses a DICOM file and prints its elements as text or JSON, or with --format manifest the metadata, evidence and content tree of a Key Object Selection.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := readInput(ctx, cmd, args)
			if err != nil {
				return err
			}
			ds, err := dicom.ReadBuffer(data)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}
			w := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text": // Dataset will nicely print the DICOM dataset data out of the box.
				fmt.Fprint(w, ds)
			case "json": // Dataset is also JSON serializable out of the box.
				j, err := json.Marshal(ds)
				if err != nil {
					return err
				}
				w.Write(j)
			case "manifest":
				m, err := kos.Extract(ds)
				if err != nil {
					return err
				}
				printManifest(w, m)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			return nil
		},
	}
	inputFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "output format (text|json|manifest)")
	return cmd
}

func printManifest(w io.Writer, m *kos.Manifest) {
	meta := m.Meta
	fmt.Fprintln(w, "=== Manifest ===")
	fmt.Fprintf(w, "SOP Instance: %s\n", meta.SOPInstanceUID)
	fmt.Fprintf(w, "Title: %s\n", meta.Title)
	fmt.Fprintf(w, "Patient: %s (%s)\n", meta.PatientName.Or("-"), meta.PatientID.Or("-"))
	fmt.Fprintf(w, "Study: %s accession %s\n", meta.StudyInstanceUID, meta.AccessionNumber.Or("-"))
	fmt.Fprintf(w, "Content: %s\n", meta.ContentDateTime())
	if d := m.KeyObjectDescription(); d.IsPresent() {
		fmt.Fprintf(w, "Description: %s\n", d)
	}

	studies, series, instances := m.Evidence.Counts()
	fmt.Fprintf(w, "\n=== Evidence: %d study(ies), %d series, %d instance(s) ===\n", studies, series, instances)
	for _, st := range m.Evidence.Studies {
		fmt.Fprintf(w, "study %s\n", st.StudyInstanceUID)
		for _, se := range st.Series {
			fmt.Fprintf(w, "  series %s %s %d instance(s) %s\n", se.SeriesInstanceUID, se.Modality, len(se.Instances), se.RetrieveURL)
		}
	}

	fmt.Fprintln(w, "\n=== Content ===")
	if m.Root == nil {
		return
	}
	m.Root.Walk(func(n *sr.Node, path string, depth int) bool {
		name := ""
		if n.ConceptName != nil {
			name = n.ConceptName.Meaning
		}
		fmt.Fprintf(w, "%*s%s %s %s%s\n", depth*2, "", n.RelationshipType, n.ValueType, name, payload(n))
		return true
	})
}

func payload(n *sr.Node) string {
	switch n.ValueType {
	case sr.Text:
		return fmt.Sprintf(" %q", n.TextValue.String())
	case sr.CodeValue:
		if c, ok := n.Code(); ok {
			return " = " + c.String()
		}
	case sr.UIDRef:
		return " = " + n.UID.String()
	case sr.PName:
		return " = " + n.PersonName.String()
	case sr.Num:
		if n.Numeric != nil {
			return " = " + n.Numeric.Value
		}
	case sr.Image, sr.Composite, sr.Waveform:
		return fmt.Sprintf(" %d reference(s)", len(n.References))
	}
	return ""
}
