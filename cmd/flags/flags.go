package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/secret-sharing-service/api"
	"github.com/ruteri/secret-sharing-service/common"
	"github.com/ruteri/secret-sharing-service/config"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, cfg *config.Config) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxConcurrentOperations:  int64(cfg.MaxConcurrentOperations),
	}
}

// LoadConfig reads --config when given, then applies every explicitly set
// sharing flag on top.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := cCtx.String(ConfigFileFlag.Name); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cCtx.IsSet(BitSizeFlag.Name) {
		cfg.BitSize = cCtx.Int(BitSizeFlag.Name)
	}
	if cCtx.IsSet(KeyPairBitSizeFlag.Name) {
		cfg.KeyPairBitSize = cCtx.Int(KeyPairBitSizeFlag.Name)
	}
	if cCtx.IsSet(SignatureAlgorithmFlag.Name) {
		cfg.SignatureAlgorithm = cCtx.String(SignatureAlgorithmFlag.Name)
	}
	if cCtx.IsSet(AsymmetricAlgorithmFlag.Name) {
		cfg.AsymmetricAlgorithm = cCtx.String(AsymmetricAlgorithmFlag.Name)
	}
	if cCtx.IsSet(MaxSharesFlag.Name) {
		cfg.MaxShares = cCtx.Int(MaxSharesFlag.Name)
	}
	if cCtx.IsSet(CoefficientModeFlag.Name) {
		cfg.CoefficientMode = cCtx.String(CoefficientModeFlag.Name)
	}
	if cCtx.IsSet(ModulusFileFlag.Name) {
		cfg.ModulusFile = cCtx.String(ModulusFileFlag.Name)
	}
	if cCtx.IsSet(PrivateKeyFileFlag.Name) {
		cfg.PrivateKeyFile = cCtx.String(PrivateKeyFileFlag.Name)
	}
	if cCtx.IsSet(PrivateKeyPassphraseFlag.Name) {
		cfg.PrivateKeyPassphrase = cCtx.String(PrivateKeyPassphraseFlag.Name)
	}
	if cCtx.IsSet(StorageFlag.Name) {
		cfg.Storage = cCtx.StringSlice(StorageFlag.Name)
	}
	if cCtx.IsSet(MaxConcurrentFlag.Name) {
		cfg.MaxConcurrentOperations = cCtx.Int(MaxConcurrentFlag.Name)
	}

	return cfg, cfg.Validate()
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"SHARING_LISTEN_ADDR"},
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "YAML configuration file; flags below override its values",
	EnvVars: []string{"SHARING_CONFIG"},
}
var BitSizeFlag = &cli.IntFlag{
	Name:    "bit-size",
	Value:   2048,
	Usage:   "bit length of the field prime (512-4096)",
	EnvVars: []string{"SHARING_BIT_SIZE"},
}
var KeyPairBitSizeFlag = &cli.IntFlag{
	Name:    "key-pair-bit-size",
	Value:   config.DefaultKeyPairBitSize,
	Usage:   "RSA modulus or EC curve size of a generated signing key",
	EnvVars: []string{"SHARING_KEY_PAIR_BIT_SIZE"},
}
var SignatureAlgorithmFlag = &cli.StringFlag{
	Name:    "signature-algorithm",
	Value:   config.DefaultSignatureAlgorithm,
	Usage:   "share signature algorithm, e.g. SHA256withRSA, SHA256withECDSA, Ed25519",
	EnvVars: []string{"SHARING_SIGNATURE_ALGORITHM"},
}
var AsymmetricAlgorithmFlag = &cli.StringFlag{
	Name:    "asymmetric-algorithm",
	Value:   config.DefaultAsymmetricAlgorithm,
	Usage:   "signing key family: RSA, EC, secp256k1 or Ed25519",
	EnvVars: []string{"SHARING_ASYMMETRIC_ALGORITHM"},
}
var MaxSharesFlag = &cli.IntFlag{
	Name:    "max-shares",
	Value:   300,
	Usage:   "largest n accepted by a split",
	EnvVars: []string{"SHARING_MAX_SHARES"},
}
var CoefficientModeFlag = &cli.StringFlag{
	Name:    "coefficient-mode",
	Value:   "prime",
	Usage:   "how polynomial coefficients are drawn: prime or uniform",
	EnvVars: []string{"SHARING_COEFFICIENT_MODE"},
}
var ModulusFileFlag = &cli.StringFlag{
	Name:    "modulus-file",
	Usage:   "file with the decimal field prime; a fresh prime is generated when empty",
	EnvVars: []string{"SHARING_MODULUS_FILE"},
}
var PrivateKeyFileFlag = &cli.StringFlag{
	Name:    "private-key-file",
	Usage:   "PEM signing key; a fresh key is generated when empty",
	EnvVars: []string{"SHARING_PRIVATE_KEY_FILE"},
}
var PrivateKeyPassphraseFlag = &cli.StringFlag{
	Name:    "private-key-passphrase",
	Usage:   "passphrase of an encrypted PEM signing key",
	EnvVars: []string{"SHARING_PRIVATE_KEY_PASSPHRASE"},
}
var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	Usage:   "share storage URI (file://, s3://, vault://); repeat for redundancy",
	EnvVars: []string{"SHARING_STORAGE"},
}
var MaxConcurrentFlag = &cli.IntFlag{
	Name:    "max-concurrent-operations",
	Usage:   "bound on concurrent split and recover calls (default: number of CPUs)",
	EnvVars: []string{"SHARING_MAX_CONCURRENT_OPERATIONS"},
}

var SharingFlags = []cli.Flag{
	ConfigFileFlag,
	BitSizeFlag,
	KeyPairBitSizeFlag,
	SignatureAlgorithmFlag,
	AsymmetricAlgorithmFlag,
	MaxSharesFlag,
	CoefficientModeFlag,
	ModulusFileFlag,
	PrivateKeyFileFlag,
	PrivateKeyPassphraseFlag,
	StorageFlag,
	MaxConcurrentFlag,
}
