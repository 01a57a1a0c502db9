// Command devtoken prints an access token for a development owner, signed
// with the server's secret. It stands in for the identity provider.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/cryptocloud/internal/flagx"
	"github.com/dmitrijs2005/cryptocloud/internal/server/auth"
	"github.com/dmitrijs2005/cryptocloud/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	owner := fs.String("owner", "", "owner id to put in the token")
	_ = fs.Parse(filterOwner(os.Args[1:]))

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -owner <id> [-s secret] [-t minutes] [-c config]")
		os.Exit(2)
	}

	tok, err := auth.GenerateToken(*owner, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func filterOwner(args []string) []string {
	return flagx.FilterArgs(args, []string{"-owner", "--owner"})
}
