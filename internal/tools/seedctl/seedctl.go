// Package seedctl implements the operator commands around seed
// provisioning: key generation, requesting and decrypting the encrypted
// seed, printing the current code, and building the commit proof.
package seedctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/shandysiswandi/pkitotp/internal/pkg/clock"
)

// Commands understood by Run.
const (
	CommandKeygen  = "keygen"
	CommandRequest = "request"
	CommandDecrypt = "decrypt"
	CommandCode    = "code"
	CommandProof   = "proof"
)

var (
	// ErrUnknownCommand is returned for an empty or unsupported command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrOutputRequired is returned when Run has nowhere to write.
	ErrOutputRequired = errors.New("output is required")
)

// Env holds the file locations and API settings read from the environment.
type Env struct {
	PrivateKeyPath     string        `env:"PRIVATE_KEY_PATH"           envDefault:"student_private.pem"`
	PublicKeyPath      string        `env:"PUBLIC_KEY_PATH"            envDefault:"student_public.pem"`
	InstructorKeyPath  string        `env:"INSTRUCTOR_PUBLIC_KEY_PATH" envDefault:"instructor_public.pem"`
	EncryptedSeedPath  string        `env:"ENCRYPTED_SEED_PATH"        envDefault:"encrypted_seed.txt"`
	SeedFilePath       string        `env:"SEED_FILE_PATH"             envDefault:"./data/seed.txt"`
	APIURL             string        `env:"SEED_API_URL"`
	StudentID          string        `env:"STUDENT_ID"`
	GithubRepoURL      string        `env:"GITHUB_REPO_URL"`
	APITimeout         time.Duration `env:"SEED_API_TIMEOUT"           envDefault:"20s"`
	APIRetries         uint64        `env:"SEED_API_RETRIES"           envDefault:"3"`
	APIRetryBackoffMin time.Duration `env:"SEED_API_RETRY_BACKOFF"     envDefault:"500ms"`
}

// Config is the parsed command line.
type Config struct {
	Env

	Command string

	// keygen
	Bits int
	// code
	PrintURI bool
	Account  string
	// proof
	CommitHash string
}

// ParseEnv reads Env from the process environment.
func ParseEnv(target *Env) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig reads the environment, takes the command from args[0] and
// parses the remaining flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bits: 4096, Account: "student"}
	if err := ParseEnv(&cfg.Env); err != nil {
		return Config{}, err
	}

	if len(args) == 0 {
		return Config{}, fmt.Errorf("%w: expected one of %s, %s, %s, %s, %s", ErrUnknownCommand,
			CommandKeygen, CommandRequest, CommandDecrypt, CommandCode, CommandProof)
	}
	cfg.Command = args[0]

	fs.IntVar(&cfg.Bits, "bits", cfg.Bits, "keygen: RSA modulus size")
	fs.BoolVar(&cfg.PrintURI, "uri", false, "code: also print the otpauth:// URI")
	fs.StringVar(&cfg.Account, "account", cfg.Account, "code: account name in the otpauth:// URI")
	fs.StringVar(&cfg.CommitHash, "commit", "", "proof: commit hash (default: git log -1 --format=%H)")
	if err := fs.Parse(args[1:]); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run executes cfg.Command and writes its report to out. A nil clk uses the
// wall clock.
func Run(ctx context.Context, cfg Config, out io.Writer, clk clock.Clocker) error {
	if out == nil {
		return ErrOutputRequired
	}
	if clk == nil {
		clk = clock.New()
	}

	switch cfg.Command {
	case CommandKeygen:
		return runKeygen(cfg, out)
	case CommandRequest:
		return runRequest(ctx, cfg, out)
	case CommandDecrypt:
		return runDecrypt(ctx, cfg, out)
	case CommandCode:
		return runCode(ctx, cfg, out, clk)
	case CommandProof:
		return runProof(ctx, cfg, out)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cfg.Command)
	}
}
