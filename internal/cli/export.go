package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/kingrea/signroll/internal/artifact"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Out string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write collected signatures to image files",
		Long: `Decode every stored signature into an image file.

Files are named NN-name.ext, where NN is the participant's position on the
roster and ext follows the stored artifact format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output directory (default: .signroll/exports)")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions) error {
	rt, err := openRuntime(rootOpts, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dir := opts.Out
	if dir == "" {
		dir = rt.cfg.ExportsDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WrapExitError(ExitFailure, "create export directory", err)
	}

	names := rt.store.Roster()
	table := rt.store.Load(ctx)
	written := 0
	for i, rec := range table {
		if !rec.Signed() {
			continue
		}
		mime, data, err := artifact.Decode(rec.Image)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", names[i], err)
			rt.diag.Printf("export: decode %s: %v", names[i], err)
			continue
		}
		path := filepath.Join(dir, exportFileName(i, names[i], mime))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return WrapExitError(ExitFailure, "write "+path, err)
		}
		verbosef(cmd, rootOpts, "wrote %s", path)
		written++
	}
	rt.book.Info("Exported %d signature(s) to %s", written, dir)
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d of %d signature(s) to %s\n", written, names.Len(), dir)
	return nil
}

func exportFileName(index int, name, mime string) string {
	return fmt.Sprintf("%02d-%s%s", index+1, fileSlug(name), artifact.Extension(mime))
}

// fileSlug folds a participant name to lowercase ASCII letters, digits and
// dashes. Accents are stripped after NFKD decomposition.
func fileSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "participant"
	}
	return slug
}
