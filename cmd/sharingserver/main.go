package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ruteri/secret-sharing-service/cmd/flags"
	"github.com/ruteri/secret-sharing-service/cryptoutils"
	"github.com/ruteri/secret-sharing-service/httpserver"
	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/ruteri/secret-sharing-service/storage"
	"github.com/urfave/cli/v2"
)

var flagOutDir = &cli.StringFlag{
	Name:  "out-dir",
	Value: ".",
	Usage: "directory to write modulus.txt, signing-key.pem and public-key.pem to",
}

func main() {
	app := &cli.App{
		Name:           "sharing-server",
		Usage:          "Serve Shamir secret sharing with signed shares",
		DefaultCommand: "serve",
		Flags:          flags.CommonFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Flags:  append(append([]cli.Flag{}, flags.ServerFlags...), flags.SharingFlags...),
				Action: serve,
			},
			{
				Name:   "keygen",
				Usage:  "generate a field prime and signing key for a fixed deployment",
				Flags:  append([]cli.Flag{flagOutDir}, flags.SharingFlags...),
				Action: keygen,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		logger.Error("Invalid configuration", "err", err)
		return err
	}

	logger.Info("Preparing field and signing key",
		"bitSize", cfg.BitSize,
		"signatureAlgorithm", cfg.SignatureAlgorithm,
		"coefficientMode", cfg.CoefficientMode)

	sharingImpl, keys, err := cfg.Build()
	if err != nil {
		logger.Error("Failed to initialize secret sharing", "err", err)
		return err
	}

	var repository interfaces.ShareRepository
	if len(cfg.Storage) > 0 {
		locations, err := cfg.StorageLocations()
		if err != nil {
			return err
		}

		backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
		if err != nil {
			logger.Error("Failed to create storage backends", "err", err)
			return err
		}

		repository, err = storage.NewShareStore(backend, logger)
		if err != nil {
			return err
		}
		logger.Info("Share storage enabled", "backends", backend.LocationURI())
	}

	serverCfg := flags.ConfigureServer(cCtx, logger, cfg)
	handler := httpserver.NewHandler(sharingImpl, keys, repository, serverCfg.MaxConcurrentOperations, logger)

	server, err := httpserver.New(serverCfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	return nil
}

func keygen(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.LoadConfig(cCtx)
	if err != nil {
		return err
	}

	outDir := cCtx.String(flagOutDir.Name)
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return err
	}

	prime, err := cryptoutils.GenerateModulus(nil, cfg.BitSize)
	if err != nil {
		return err
	}

	keys, err := cryptoutils.GenerateKeyMaterial(cfg.AsymmetricAlgorithm, cfg.SignatureAlgorithm, cfg.KeyPairBitSize)
	if err != nil {
		return err
	}

	privatePEM, err := cryptoutils.MarshalPrivateKeyPEM(keys.PrivateKey(), []byte(cfg.PrivateKeyPassphrase))
	if err != nil {
		return err
	}

	publicPEM, err := keys.PublicKeyPEM()
	if err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
		perm os.FileMode
	}{
		{"modulus.txt", cryptoutils.MarshalModulus(prime), 0o644},
		{"signing-key.pem", privatePEM, 0o600},
		{"public-key.pem", publicPEM, 0o644},
	}
	for _, f := range files {
		path := filepath.Join(outDir, f.name)
		if err := os.WriteFile(path, f.data, f.perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	logger.Info("Key material written",
		"dir", outDir,
		"bitSize", cfg.BitSize,
		"keyFamily", keys.KeyFamily(),
		"signatureAlgorithm", keys.Algorithm())
	return nil
}
