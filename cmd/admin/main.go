package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"urlstore/pkg/app"
	"urlstore/pkg/config"
	"urlstore/pkg/logging"
	"urlstore/pkg/security"
	"urlstore/pkg/storage"
)

const usage = "expected 'set-secret', 'token', 'export', 'import' or 'purge-views' subcommands"

func main() {
	setSecretCmd := flag.NewFlagSet("set-secret", flag.ExitOnError)
	useBcrypt := setSecretCmd.Bool("bcrypt", false, "store a bcrypt hash instead of the plain secret")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenTTL := tokenCmd.Duration("ttl", time.Hour, "token lifetime")
	tokenSubject := tokenCmd.String("sub", "admin", "token subject")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	purgeCmd := flag.NewFlagSet("purge-views", flag.ExitOnError)
	purgeCode := purgeCmd.String("code", "", "code whose view record is dropped")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// admin commands must see their own writes and never authenticate
	cfg.ViewMode = "sync"
	cfg.AuthSecret = ""
	cfg.AuthScheme = security.SchemeStatic

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logging.NewLoggerTo(os.Stderr, logging.LogLevel(cfg.LogLevel)))
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "set-secret":
		setSecretCmd.Parse(os.Args[2:])
		if setSecretCmd.NArg() != 1 {
			fmt.Println("usage: admin set-secret [-bcrypt] <secret>")
			os.Exit(1)
		}
		doSetSecret(ctx, a, setSecretCmd.Arg(0), *useBcrypt)
	case "token":
		tokenCmd.Parse(os.Args[2:])
		doToken(ctx, a, *tokenSubject, *tokenTTL)
	case "export":
		exportCmd.Parse(os.Args[2:])
		doExport(ctx, a)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(ctx, a, *importFile)
	case "purge-views":
		purgeCmd.Parse(os.Args[2:])
		if err := a.Service.PurgeViews(ctx, *purgeCode); err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func doSetSecret(ctx context.Context, a *app.App, secret string, useBcrypt bool) {
	if useBcrypt {
		hash, err := security.HashSecret(secret)
		if err != nil {
			log.Fatalf("Hashing failed: %v", err)
		}
		secret = hash
	}
	if err := a.Service.SetSecret(ctx, secret); err != nil {
		log.Fatalf("Storing secret failed: %v", err)
	}
	log.Printf("Secret updated")
}

// doToken signs with the stored secret, so it only works when that secret is not a bcrypt hash.
func doToken(ctx context.Context, a *app.App, subject string, ttl time.Duration) {
	link, err := a.Links.Get(ctx, storage.SecretKey)
	if err != nil {
		log.Fatalf("Reading secret failed: %v", err)
	}
	if link == nil {
		log.Fatalf("No secret stored; run set-secret first")
	}

	token, err := security.IssueToken(link.Destination, subject, ttl)
	if err != nil {
		log.Fatalf("Signing failed: %v", err)
	}
	fmt.Println(token)
}

func doExport(ctx context.Context, a *app.App) {
	links, err := a.Service.Export(ctx)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		log.Fatalf("Encode failed: %v", err)
	}
}

func doImport(ctx context.Context, a *app.App, filename string) {
	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	var links []storage.ShortLink
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		log.Fatalf("Decode failed: %v", err)
	}

	count, err := a.Service.Import(ctx, links)
	if err != nil {
		log.Fatalf("Import failed after %d links: %v", count, err)
	}
	log.Printf("Imported %d links", count)
}
