package cli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/dmitrijs2005/cryptocloud/internal/envelope"
	"github.com/dmitrijs2005/cryptocloud/internal/filex"
	"github.com/spf13/pflag"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	rest := fs.Args()
	if len(rest) < minArgs || len(rest) > maxArgs {
		return nil, ErrUsage
	}
	return rest, nil
}

func (a *App) mkdir(ctx context.Context, args []string) error {
	fs := newFlagSet("mkdir")
	parent := fs.StringP("parent", "p", "", "parent folder id")
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	e, err := a.storage.CreateFolder(ctx, rest[0], *parent)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, e.ID)
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	rest, err := parse(newFlagSet("ls"), args, 0, 1)
	if err != nil {
		return err
	}
	parent := ""
	if len(rest) == 1 {
		parent = rest[0]
	}

	list, err := a.storage.ListChildren(ctx, parent)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSIZE\tCREATED\tNAME")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.Kind, e.Size, e.CreatedAt.Local().Format(time.DateTime), e.Name)
	}
	return tw.Flush()
}

func (a *App) put(ctx context.Context, args []string) error {
	fs := newFlagSet("put")
	parent := fs.StringP("parent", "p", "", "parent folder id")
	name := fs.StringP("name", "n", "", "entry name (defaults to the file name)")
	contentType := fs.String("type", "", "content type recorded on the upload")
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	path := rest[0]
	if *name == "" {
		*name = filepath.Base(path)
	}
	if *contentType == "" {
		*contentType = mime.TypeByExtension(filepath.Ext(path))
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	codec, err := a.codec()
	if err != nil {
		return err
	}
	blob, err := codec.Seal(plaintext)
	if err != nil {
		return err
	}

	capb, locator, err := a.storage.RequestUpload(ctx, *name, *contentType)
	if err != nil {
		return err
	}
	if err := a.transfer.Upload(ctx, capb, blob); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	e, err := a.storage.FinalizeUpload(ctx, locator, *name, uint64(len(blob)), *parent)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, e.ID)
	return nil
}

func (a *App) get(ctx context.Context, args []string) error {
	fs := newFlagSet("get")
	out := fs.StringP("out", "o", "", "output path (defaults to the entry name)")
	rest, err := parse(fs, args, 1, 1)
	if err != nil {
		return err
	}

	e, err := a.storage.GetEntry(ctx, rest[0])
	if err != nil {
		return err
	}
	if *out == "" {
		*out = e.Name
	}

	capb, err := a.storage.RequestDownload(ctx, e.ID)
	if err != nil {
		return err
	}
	blob, err := a.transfer.Download(ctx, capb)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	codec, err := a.codec()
	if err != nil {
		return err
	}
	plaintext, err := codec.Open(blob)
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err = a.out.Write(plaintext)
		return err
	}
	return filex.WriteFileAtomic(*out, plaintext, 0o600)
}

func (a *App) rename(ctx context.Context, args []string) error {
	fs := newFlagSet("mv")
	version := fs.Int64("version", 0, "fail unless the entry is at this version")
	rest, err := parse(fs, args, 2, 2)
	if err != nil {
		return err
	}

	e, err := a.storage.Rename(ctx, rest[0], rest[1], *version)
	if err != nil {
		return err
	}
	a.printEntry(e)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	rest, err := parse(newFlagSet("rm"), args, 1, 1)
	if err != nil {
		return err
	}
	return a.storage.Delete(ctx, rest[0])
}

func (a *App) stat(ctx context.Context, args []string) error {
	rest, err := parse(newFlagSet("stat"), args, 1, 1)
	if err != nil {
		return err
	}
	e, err := a.storage.GetEntry(ctx, rest[0])
	if err != nil {
		return err
	}
	a.printEntry(e)
	return nil
}

func (a *App) usage(ctx context.Context, args []string) error {
	if _, err := parse(newFlagSet("usage"), args, 0, 0); err != nil {
		return err
	}
	u, err := a.storage.Usage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "used:  %s (%d bytes)\nlimit: %s (%d bytes)\n",
		humanBytes(u.BytesUsed), u.BytesUsed, humanBytes(u.BytesLimit), u.BytesLimit)
	return nil
}

func (a *App) ping(ctx context.Context, args []string) error {
	if err := a.storage.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}

func (a *App) keygen(_ context.Context, args []string) error {
	if _, err := parse(newFlagSet("keygen"), args, 0, 0); err != nil {
		return err
	}
	key := envelope.GenerateKey()
	defer key.Wipe()

	fmt.Fprintln(a.out, key.Base64())
	fmt.Fprintln(a.errOut, "fingerprint:", key.Fingerprint())
	return nil
}

func (a *App) printEntry(e *api.Entry) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", e.ID)
	fmt.Fprintf(tw, "name:\t%s\n", e.Name)
	fmt.Fprintf(tw, "kind:\t%s\n", e.Kind)
	fmt.Fprintf(tw, "parent:\t%s\n", e.ParentID)
	fmt.Fprintf(tw, "size:\t%d\n", e.Size)
	fmt.Fprintf(tw, "created:\t%s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "version:\t%d\n", e.Version)
	_ = tw.Flush()
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
