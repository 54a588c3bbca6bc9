package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Wallet provider kinds selectable with WALLET_PROVIDER.
const (
	ProviderNone   = ""
	ProviderBridge = "bridge"
	ProviderLocal  = "local"
)

// Config contains all configuration parameters for the application.
// Note: the key-file password is prompted at runtime and kept in memory - use GetWalletPasswordBytes()
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	WalletProvider  string `envconfig:"WALLET_PROVIDER" default:""`
	WalletBridgeURL string `envconfig:"WALLET_BRIDGE_URL" default:"http://127.0.0.1:1248"`
	WalletKeyFile   string `envconfig:"WALLET_KEY_FILE"`
	WalletConfirm   bool   `envconfig:"WALLET_CONFIRM" default:"false"`

	ChainRPCURL     string `envconfig:"CHAIN_RPC_URL" default:"https://rpc.sepolia.org"`
	ContractAddress string `envconfig:"CONTRACT_ADDRESS" default:"0xd9145CCE52D386f254917e481eB44e9943F39138"`
	ReceiptPollMS   int    `envconfig:"RECEIPT_POLL_MS" default:"2000"`

	PinataAPIURL       string `envconfig:"PINATA_API_URL" default:"https://api.pinata.cloud"`
	PinataAPIKey       string `envconfig:"PINATA_API_KEY"`
	PinataSecretAPIKey string `envconfig:"PINATA_SECRET_API_KEY"`
	PinataGatewayURL   string `envconfig:"PINATA_GATEWAY_URL" default:"https://gateway.pinata.cloud/ipfs/"`

	HTTPTimeoutSeconds int    `envconfig:"HTTP_TIMEOUT_SECONDS" default:"30"`
	ExamTimezone       string `envconfig:"EXAM_TIMEZONE" default:"Local"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load reads and validates a Config from the environment without touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	c.WalletProvider = strings.ToLower(strings.TrimSpace(c.WalletProvider))
	switch c.WalletProvider {
	case ProviderNone, ProviderBridge:
	case ProviderLocal:
		if c.WalletKeyFile == "" {
			return errors.New("WALLET_KEY_FILE is required when WALLET_PROVIDER=local")
		}
	default:
		return fmt.Errorf("unknown WALLET_PROVIDER %q (want bridge, local or empty)", c.WalletProvider)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// Location resolves EXAM_TIMEZONE, the zone exam dates are entered in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ExamTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid EXAM_TIMEZONE %q: %w", c.ExamTimezone, err)
	}
	return loc, nil
}

// HTTPTimeout returns the outbound HTTP client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ReceiptPollInterval returns how often pending transaction receipts are polled.
func (c *Config) ReceiptPollInterval() time.Duration {
	return time.Duration(c.ReceiptPollMS) * time.Millisecond
}

var passwordBytes []byte

// PromptForPassword prompts the user for the key-file password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword(prompt string) error {
	raw, err := ReadSecret(prompt)
	if err != nil {
		return err
	}
	passwordBytes = raw
	return nil
}

// ReadSecret reads a non-empty line from the terminal without echo.
func ReadSecret(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	clear(raw)
	return out, nil
}

// GetWalletPasswordBytes returns the password stored in memory (from PromptForPassword).
// Caller must zero the returned slice after use.
func GetWalletPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}

// ClearPassword wipes the stored password.
func ClearPassword() {
	clear(passwordBytes)
	passwordBytes = nil
}
