package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-k string   record store driver: postgres | bolt
//	-d string   PostgreSQL DSN
//	-f string   bbolt database file
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x int      capability expiry, minutes
//	-q uint     quota limit, bytes
//	-v bool     verify uploaded object size at finalize
//	-l string   log level
//
// Args are filtered with flagx.FilterArgs first so that flags belonging to
// other components (e.g. -c) do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-f", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-x", "-q", "-v", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.StoreDriver, "k", config.StoreDriver, "record store driver (postgres|bolt)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BoltPath, "f", config.BoltPath, "bbolt database file")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	capabilityExpiry := fs.Int("x", int(config.CapabilityExpiry.Minutes()), "capability expiry (in minutes)")

	fs.Uint64Var(&config.QuotaLimitBytes, "q", config.QuotaLimitBytes, "quota limit in bytes")
	fs.BoolVar(&config.VerifyUploadSize, "v", config.VerifyUploadSize, "verify uploaded object size")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// minute-granular flags only override when given, so sub-minute values
	// from earlier layers survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "x":
			config.CapabilityExpiry = time.Duration(*capabilityExpiry) * time.Minute
		}
	})
	return nil
}
