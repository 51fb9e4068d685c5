package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/CamberLoid/FHEVault/internal/clientlib"
	"github.com/CamberLoid/FHEVault/internal/codec"
	"github.com/CamberLoid/FHEVault/internal/config"
	"github.com/CamberLoid/FHEVault/internal/key"
	"github.com/CamberLoid/FHEVault/internal/logger"
	"github.com/CamberLoid/FHEVault/internal/scoring"
	"github.com/CamberLoid/FHEVault/internal/strategy"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var log zerolog.Logger

// CLI
func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "fhevault",
		HelpName: "fhevault",
		Version:  "0.99.indev",
		Usage:    "Submit encrypted trading strategies to an FHEVault server and decrypt their scores locally",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "server base URL",
				Value:   config.DefaultServerURL,
				EnvVars: []string{"FHEVAULT_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			log = logger.New(logger.Config{Level: c.String("log-level"), Pretty: true})
			return nil
		},
		Commands: []*cli.Command{
			keygenCommand,
			runCommand,
			getCommand,
			listCommand,
			statsCommand,
			decryptCommand,
		},
	}
}

func newClient(c *cli.Context) *clientlib.Client {
	return clientlib.NewClient(c.String("server"))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var keygenCommand = &cli.Command{
	Name:  "keygen",
	Usage: "generate a key pair for run --public-key/--private-key (CKKS keychains are shown for inspection only)",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "ckks", Usage: "also generate a CKKS keychain"},
	},
	Action: func(c *cli.Context) error {
		gen := key.GenerateKeyPair
		if c.Bool("ckks") {
			gen = key.GenerateKeyPairWithCKKS
		}
		kp, err := gen()
		if err != nil {
			return err
		}

		out := c.App.Writer
		fmt.Fprintf(out, "identifier:  %s\n", kp.Identifier)
		fmt.Fprintf(out, "public key:  %s\n", kp.PublicKey)
		fmt.Fprintf(out, "private key: %s\n", kp.PrivateKey)
		if kp.HasCKKS() {
			pk, err := key.MarshalCKKSPayload(kp.CKKS.CKKSPublicKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ckks public key (%d bytes base64): %s\n", len(pk), preview(pk))
		}
		return nil
	},
}

func preview(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "encrypt, submit and compute a strategy, then decrypt the score locally",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "risk", Usage: "risk level (1-10)", Required: true},
		&cli.IntFlag{Name: "allocation", Usage: "allocation percentage (0-100)", Required: true},
		&cli.IntFlag{Name: "timeframe", Usage: "timeframe in days (1-365)", Required: true},
		&cli.StringFlag{Name: "scheme", Usage: "mock or ckks", Value: codec.SchemeMock},
		&cli.StringFlag{Name: "public-key", Usage: "mock public key from keygen", EnvVars: []string{"FHEVAULT_PUBLIC_KEY"}},
		&cli.StringFlag{Name: "private-key", Usage: "mock private key from keygen", EnvVars: []string{"FHEVAULT_PRIVATE_KEY"}},
		&cli.BoolFlag{Name: "report", Usage: "report the decrypted score back to the server"},
		&cli.DurationFlag{Name: "timeout", Value: 2 * time.Minute},
	},
	Action: func(c *cli.Context) error {
		engine, kp, err := runKeys(c)
		if err != nil {
			return err
		}

		w := clientlib.NewWorkflow(newClient(c), engine, kp, log)
		w.Observe(func(t clientlib.Transition) {
			if t.Err != nil {
				fmt.Fprintf(c.App.ErrWriter, "[%s] failed: %v\n", t.From, t.Err)
				return
			}
			fmt.Fprintf(c.App.Writer, "[%s] -> [%s]\n", t.From, t.To)
		})

		ctx, cancel := contextWithTimeout(c, c.Duration("timeout"))
		defer cancel()

		in := strategy.Input{
			RiskLevel:  c.Int("risk"),
			Allocation: c.Int("allocation"),
			Timeframe:  c.Int("timeframe"),
		}
		res, err := w.Run(ctx, in)
		if err != nil {
			return err
		}
		analysis, err := w.Decrypt()
		if err != nil {
			return err
		}

		if c.Bool("report") {
			if err := w.Report(ctx, analysis.Score); err != nil {
				return errors.Wrap(err, "report score")
			}
		}

		fmt.Fprintf(c.App.Writer, "strategy:       %s\n", res.StrategyID)
		fmt.Fprintf(c.App.Writer, "encrypted hash: %s\n", res.EncryptedHash)
		printAnalysis(c.App.Writer, analysis)
		return nil
	},
}

// runKeys 选择方案并准备密钥
// 模拟方案可以使用 keygen 生成的密钥，否则每次运行生成新密钥
func runKeys(c *cli.Context) (codec.Engine, *key.KeyPair, error) {
	provided := c.String("public-key") != "" || c.String("private-key") != ""

	switch c.String("scheme") {
	case codec.SchemeMock:
		if provided {
			kp, err := key.ParseKeyPair(c.String("public-key"), c.String("private-key"))
			return codec.Mock{}, kp, err
		}
		kp, err := key.GenerateKeyPair()
		return codec.Mock{}, kp, errors.Wrap(err, "generate keys")

	case codec.SchemeCKKS:
		if provided {
			return nil, nil, fmt.Errorf("the ckks scheme always uses a fresh keychain; drop --public-key/--private-key")
		}
		kp, err := key.GenerateKeyPairWithCKKS()
		return codec.NewCKKS(), kp, errors.Wrap(err, "generate keys")

	default:
		return nil, nil, fmt.Errorf("unknown scheme %q", c.String("scheme"))
	}
}

func printAnalysis(w io.Writer, a scoring.Analysis) {
	fmt.Fprintf(w, "score:          %d/100\n", a.Score)
	fmt.Fprintf(w, "category:       %s (top %d%%)\n", a.Category, 100-a.Percentile)
	fmt.Fprintf(w, "recommendation: %s\n", a.Recommendation)
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "show a stored strategy",
	ArgsUsage: "ID",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "pretty", Usage: "dump the record with Go syntax"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		rec, err := newClient(c).GetStrategy(c.Context, c.Args().First())
		if err != nil {
			return err
		}
		if c.Bool("pretty") {
			_, err = pretty.Fprintf(c.App.Writer, "%# v\n", rec)
			return err
		}
		return printJSON(c.App.Writer, rec)
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "list stored strategies",
	Action: func(c *cli.Context) error {
		list, err := newClient(c).ListStrategies(c.Context)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tRISK\tALLOC\tDAYS\tSTATUS\tSCORE\tCREATED")
		for _, rec := range list {
			score := "-"
			if rec.DecryptedScore != nil {
				score = fmt.Sprint(*rec.DecryptedScore)
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
				rec.ID, rec.RiskLevel, rec.Allocation, rec.Timeframe,
				rec.Status, score, rec.CreatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "show server statistics",
	Action: func(c *cli.Context) error {
		stats, err := newClient(c).Stats(c.Context)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "strategies:   %d\ncomputations: %d\n",
			stats.TotalStrategies, stats.TotalComputations)
		return nil
	},
}

var decryptCommand = &cli.Command{
	Name:      "decrypt",
	Usage:     "decrypt a mock encrypted score locally",
	ArgsUsage: "ENCRYPTED_SCORE",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		res := codec.DecryptScore(c.Args().First(), "")
		if res.Err() != nil {
			log.Warn().Err(res.Err()).Msg("score undecodable, treating as 0")
		}
		printAnalysis(c.App.Writer, scoring.Classify(res.Score()))
		return nil
	},
}
