// Command deauth-enroll generates a hash chain for a badge and stores it in
// the workstation database, replacing any previous chain.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/config"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/db"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/store/sqlite"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

type options struct {
	dbPath        string
	identity      string
	badgeID       uint
	credentialRef string
	length        int
	algorithm     string
	seedFile      string
	register      bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deauth-enroll: %v\n", err)
		os.Exit(1)
	}
}

// flagDefaults seeds flag defaults from the daemon's config when
// DEAUTH_CONFIG is set, so enrollment targets the same database.
func flagDefaults() (config.Config, error) {
	path := os.Getenv("DEAUTH_CONFIG")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func run() error {
	defaults, err := flagDefaults()
	if err != nil {
		return err
	}

	var opt options
	flag.StringVar(&opt.dbPath, "db", defaults.DBPath, "workstation database path")
	flag.StringVar(&opt.identity, "identity", defaults.Identity, "local account the badge belongs to")
	flag.UintVar(&opt.badgeID, "badge-id", 0, "numeric badge id (required)")
	flag.StringVar(&opt.credentialRef, "credential-ref", "", "path to the badge's public key material")
	flag.IntVar(&opt.length, "length", 1000, "number of one-time credentials to generate")
	flag.StringVar(&opt.algorithm, "algorithm", defaults.HashAlgorithm, "chain hash: sha256, blake3 or blake2b-256")
	flag.StringVar(&opt.seedFile, "seed-file", "", "read the seed from this file instead of the terminal")
	flag.BoolVar(&opt.register, "register", false, "also register identity -> badge in the local badge table")
	flag.Parse()

	if opt.badgeID == 0 || opt.badgeID > uint(^uint32(0)) {
		return errors.New("-badge-id is required and must fit in 32 bits")
	}
	alg, err := hashchain.ParseAlgorithm(opt.algorithm)
	if err != nil {
		return err
	}

	seed, err := readSeed(opt.seedFile)
	if err != nil {
		return err
	}
	chain, err := hashchain.Generate(seed, opt.length, alg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlDB, err := db.Open(ctx, db.Config{Path: opt.dbPath})
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	chains := sqlite.NewChainStore(sqlDB, writer)
	if err := chains.Enroll(ctx, uint32(opt.badgeID), chain); err != nil {
		return err
	}

	if opt.register {
		badges := sqlite.NewBadgeStore(sqlDB, writer)
		if err := badges.Upsert(ctx, types.BadgeRecord{
			Identity:      opt.identity,
			BadgeID:       uint32(opt.badgeID),
			CredentialRef: opt.credentialRef,
		}); err != nil {
			return err
		}
	}

	remaining, err := service.NewCredentials(chains).Remaining(ctx, uint32(opt.badgeID))
	if err != nil {
		return err
	}

	fmt.Printf("badge %d enrolled (%s, %d credentials remaining)\n", opt.badgeID, alg, remaining)
	fmt.Printf("anchor: %s\n", hex.EncodeToString(chain.Anchor()))
	fmt.Printf("root:   %s\n", hex.EncodeToString(chain.Root()))
	if opt.register {
		fmt.Printf("registered %q -> badge %d\n", opt.identity, opt.badgeID)
	}
	return nil
}

// readSeed reads the seed without echo when stdin is a terminal.
func readSeed(path string) ([]byte, error) {
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		return trimSeed(b)
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "seed: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read seed: %w", err)
		}
		return trimSeed(b)
	}

	b, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return trimSeed(b)
}

func trimSeed(b []byte) ([]byte, error) {
	s := strings.TrimRight(string(b), "\r\n")
	if s == "" {
		return nil, hashchain.ErrEmptySeed
	}
	return []byte(s), nil
}
