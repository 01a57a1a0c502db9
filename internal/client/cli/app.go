// Package cli implements the cryptocloud command-line client. File
// contents are sealed and opened locally; the server only ever sees
// sealed blobs by reference.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
	"github.com/dmitrijs2005/cryptocloud/internal/client/client"
	"github.com/dmitrijs2005/cryptocloud/internal/client/config"
	"github.com/dmitrijs2005/cryptocloud/internal/envelope"
)

// Storage is the control-plane client used by the commands.
type Storage interface {
	Ping(ctx context.Context) error
	CreateFolder(ctx context.Context, name, parentID string) (*api.Entry, error)
	GetEntry(ctx context.Context, id string) (*api.Entry, error)
	Rename(ctx context.Context, id, newName string, expectedVersion int64) (*api.Entry, error)
	ListChildren(ctx context.Context, parentID string) ([]*api.Entry, error)
	Delete(ctx context.Context, id string) error
	RequestUpload(ctx context.Context, filename, contentType string) (*api.Capability, string, error)
	FinalizeUpload(ctx context.Context, locator, filename string, size uint64, parentID string) (*api.Entry, error)
	RequestDownload(ctx context.Context, id string) (*api.Capability, error)
	Usage(ctx context.Context) (*api.UsageResponse, error)
	Close() error
}

// BlobTransfer moves sealed blobs with capabilities.
type BlobTransfer interface {
	Upload(ctx context.Context, c *api.Capability, blob []byte) error
	Download(ctx context.Context, c *api.Capability) ([]byte, error)
}

var ErrUsage = errors.New("usage error")

type App struct {
	config   *config.Config
	storage  Storage
	transfer BlobTransfer
	out      io.Writer
	errOut   io.Writer

	// loadKey returns the master key; it prompts when none is configured.
	loadKey func() (*envelope.KeyMaterial, error)
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, client.NewTransfer(&http.Client{}), os.Stdout, os.Stderr), nil
}

func newApp(c *config.Config, s Storage, t BlobTransfer, out, errOut io.Writer) *App {
	a := &App{config: c, storage: s, transfer: t, out: out, errOut: errOut}
	a.loadKey = a.keyFromConfig
	return a
}

func (a *App) Close() error {
	return a.storage.Close()
}

type command struct {
	usage string
	help  string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"mkdir":  {"mkdir <name> [--parent <id>]", "create a folder", (*App).mkdir},
	"ls":     {"ls [<folder-id>]", "list a folder, or the root level", (*App).list},
	"put":    {"put <file> [--parent <id>] [--name <name>] [--type <content-type>]", "seal and upload a file", (*App).put},
	"get":    {"get <id> [--out <path>]", "download and open a file", (*App).get},
	"mv":     {"mv <id> <new-name> [--version <n>]", "rename an entry", (*App).rename},
	"rm":     {"rm <id>", "delete an entry and everything below it", (*App).remove},
	"stat":   {"stat <id>", "show one entry", (*App).stat},
	"usage":  {"usage", "show stored bytes and quota", (*App).usage},
	"ping":   {"ping", "check that the server is serving", (*App).ping},
	"keygen": {"keygen", "print a new random master key", (*App).keygen},
}

// Run executes one command. args[0] is the command name.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.printHelp()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.printHelp()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	err := cmd.run(a, ctx, args[1:])
	if errors.Is(err, ErrUsage) {
		fmt.Fprintln(a.errOut, "usage: cryptocloud", cmd.usage)
	}
	return err
}

func (a *App) printHelp() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: cryptocloud [-a server] [-t token] [-k key] [-c config] <command> [args]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-70s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprint(a.out, b.String())
}
