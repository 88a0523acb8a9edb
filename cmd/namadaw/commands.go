package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonployed/namada/core/types"
	"github.com/anonployed/namada/crypto/keys"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/anonployed/namada/txpool/encrypted"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keygenCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "generate a sender key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scheme", Value: keys.Ed25519.String(), Usage: "ed25519, secp256k1 or bls"},
			&cli.StringFlag{Name: "out", Required: true, Usage: "key file to write"},
		},
		Action: func(c *cli.Context) error {
			scheme, err := keys.ParseScheme(c.String("scheme"))
			if err != nil {
				return err
			}
			sk, err := keys.Generate(scheme, nil)
			if err != nil {
				return err
			}
			f := newSenderKeyFile(sk)
			if err := writeJSONFile(c.String("out"), f, 0o600); err != nil {
				return err
			}
			e.log.Info("Generated sender key", "scheme", scheme, "address", f.Address)
			fmt.Fprintln(c.App.Writer, f.Address)
			return nil
		},
	}
}

func tpkeKeygenCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tpke-keygen",
		Usage: "generate an epoch encryption key pair",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Required: true, Usage: "key pair file to write"},
			&cli.StringFlag{Name: "public-out", Usage: "also write a file holding only the encryption key"},
			&cli.BoolFlag{Name: "dev", Usage: "use the insecure generator key pair"},
		},
		Action: func(c *cli.Context) error {
			var (
				ek  tpke.EncryptionKey
				dk  tpke.DecryptionKey
				err error
			)
			if c.Bool("dev") {
				ek, dk = tpke.GeneratorKeyPair()
				e.log.Warn("Using the insecure generator key pair")
			} else if ek, dk, err = tpke.GenerateKeyPair(nil); err != nil {
				return err
			}
			if err := writeJSONFile(c.String("out"), epochKeyFile{EncryptionKey: ek, DecryptionKey: &dk}, 0o600); err != nil {
				return err
			}
			if out := c.String("public-out"); out != "" {
				if err := writeJSONFile(out, epochKeyFile{EncryptionKey: ek}, 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintln(c.App.Writer, ek)
			return nil
		},
	}
}

func wrapCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "wrap",
		Usage: "encrypt, wrap and sign a transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Required: true, Usage: "sender key file"},
			&cli.StringFlag{Name: "code", Usage: "file holding the tx code"},
			&cli.StringFlag{Name: "data", Usage: "hex encoded tx data"},
			&cli.StringFlag{Name: "update-vp", Usage: "account whose validity predicate the tx replaces (data becomes an UpdateVp)"},
			&cli.StringFlag{Name: "vp-code", Usage: "file holding the new validity predicate code, with --update-vp"},
			&cli.StringFlag{Name: "fee", Value: "0", Usage: "fee amount"},
			&cli.StringFlag{Name: "token", Usage: "fee token address (default: native token)"},
			&cli.Uint64Flag{Name: "epoch", Usage: "epoch whose key encrypts the tx"},
			&cli.Uint64Flag{Name: "gas-limit", Usage: "gas limit, rounded up to the resolution"},
			&cli.StringFlag{Name: "enc-key", Usage: "hex encryption key (default: from config epoch_keys)"},
			&cli.BoolFlag{Name: "dev", Usage: "encrypt to the insecure generator key"},
			&cli.StringFlag{Name: "out", Usage: "envelope file to write (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			sk, err := loadSenderKey(c.String("key"))
			if err != nil {
				return err
			}
			var code []byte
			if path := c.String("code"); path != "" {
				if code, err = os.ReadFile(path); err != nil {
					return err
				}
			}
			var data []byte
			if h := c.String("data"); h != "" {
				if data, err = hexutil.Decode(h); err != nil {
					return fmt.Errorf("--data: %w", err)
				}
			}
			if c.IsSet("update-vp") {
				if data != nil {
					return errors.New("--data and --update-vp are exclusive")
				}
				if data, err = updateVpData(c.String("update-vp"), c.String("vp-code")); err != nil {
					return err
				}
			}
			amount, err := types.ParseAmount(c.String("fee"))
			if err != nil {
				return err
			}
			token := types.NativeToken()
			if t := c.String("token"); t != "" {
				if token, err = types.ParseAddress(t); err != nil {
					return err
				}
			}
			source, err := e.keySource(c)
			if err != nil {
				return err
			}

			epoch := types.Epoch(c.Uint64("epoch"))
			wrapper, err := types.NewWrapperTx(
				types.NewFee(amount, token),
				sk,
				epoch,
				types.GasLimitFromUint64(c.Uint64("gas-limit")),
				types.NewTx(code, data),
				source,
			)
			if err != nil {
				return err
			}
			signed, err := wrapper.Sign(sk)
			if err != nil {
				return err
			}
			e.log.Info("Wrapped tx", "hash", signed.Hash(), "epoch", epoch,
				"gas_limit", wrapper.GasLimit().Uint64(), "payer", wrapper.FeePayer())

			if out := c.String("out"); out != "" {
				return writeEnvelope(out, signed)
			}
			fmt.Fprintln(c.App.Writer, hexutil.Encode(signed.Bytes()))
			return nil
		},
	}
}

// updateVpData builds the data of a validity predicate update.
func updateVpData(addr, codePath string) ([]byte, error) {
	if codePath == "" {
		return nil, errors.New("--update-vp needs --vp-code")
	}
	a, err := types.ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	code, err := os.ReadFile(codePath)
	if err != nil {
		return nil, err
	}
	return (&types.UpdateVp{Addr: a, VpCode: code}).Bytes()
}

// keySource resolves where wrap takes its encryption key from.
func (e *env) keySource(c *cli.Context) (types.EncryptionKeySource, error) {
	switch {
	case c.String("enc-key") != "":
		var key tpke.EncryptionKey
		if err := key.UnmarshalText([]byte(c.String("enc-key"))); err != nil {
			return nil, fmt.Errorf("--enc-key: %w", err)
		}
		return types.StaticKeySource{Key: key}, nil
	case c.Bool("dev"):
		e.log.Warn("Encrypting to the insecure generator key")
		return types.GeneratorKeySource(), nil
	default:
		return e.cfg.KeyRegistry()
	}
}

type inspectOutput struct {
	Hash            types.Hash       `json:"hash"`
	FeePayer        types.Address    `json:"fee_payer"`
	CiphertextValid bool             `json:"ciphertext_valid"`
	Wrapper         *types.WrapperTx `json:"wrapper"`
}

func inspectCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "authenticate a signed wrapper and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Required: true, Usage: "envelope file"},
		},
		Action: func(c *cli.Context) error {
			tx, err := readEnvelope(c.String("in"))
			if err != nil {
				return err
			}
			wrapper, err := types.WrapperTxFromTx(tx)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, inspectOutput{
				Hash:            tx.Hash(),
				FeePayer:        wrapper.FeePayer(),
				CiphertextValid: wrapper.ValidateCiphertext(),
				Wrapper:         wrapper,
			})
		},
	}
}

func decryptCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "decrypt",
		Usage: "authenticate a signed wrapper and decrypt its inner tx",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Required: true, Usage: "envelope file"},
			&cli.StringFlag{Name: "dec-key", Required: true, Usage: "epoch key pair file"},
		},
		Action: func(c *cli.Context) error {
			dk, err := loadDecryptionKey(c.String("dec-key"))
			if err != nil {
				return err
			}
			tx, err := readEnvelope(c.String("in"))
			if err != nil {
				return err
			}
			wrapper, err := types.WrapperTxFromTx(tx)
			if err != nil {
				return err
			}
			if !wrapper.ValidateCiphertext() {
				return encrypted.ErrInvalidCiphertext
			}
			inner, err := wrapper.Decrypt(dk)
			if err != nil {
				return err
			}
			e.log.Debug("Decrypted wrapper", "hash", tx.Hash(), "inner", inner.Hash())
			return printJSON(c.App.Writer, inner)
		},
	}
}

type batchTx struct {
	Hash     types.Hash    `json:"hash"`
	FeePayer types.Address `json:"fee_payer"`
	Fee      types.Fee     `json:"fee"`
	Tx       *types.Tx     `json:"tx"`
}

type batchFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type batchOutput struct {
	Epoch    types.Epoch    `json:"epoch"`
	Txs      []batchTx      `json:"txs"`
	Rejected []batchFailure `json:"rejected,omitempty"`
}

func batchCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "admit signed wrappers into a pool and decrypt an epoch",
		ArgsUsage: "[envelope files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dec-key", Required: true, Usage: "epoch key pair file"},
			&cli.Uint64Flag{Name: "epoch", Usage: "epoch to decrypt"},
			&cli.StringFlag{Name: "metrics", Usage: "write pool metrics in the prometheus text format to this file"},
			&cli.StringFlag{Name: "journal", Usage: "pool journal directory (default: pool.journal from config)"},
		},
		Action: func(c *cli.Context) error {
			dk, err := loadDecryptionKey(c.String("dec-key"))
			if err != nil {
				return err
			}
			poolCfg, err := e.cfg.poolConfig()
			if err != nil {
				return err
			}
			if len(e.cfg.EpochKeys) > 0 {
				if poolCfg.Keys, err = e.cfg.KeyRegistry(); err != nil {
					return err
				}
			}
			journalDir := e.cfg.Pool.Journal
			if c.IsSet("journal") {
				journalDir = c.String("journal")
			}
			if c.NArg() == 0 && journalDir == "" {
				return errors.New("no envelope files given")
			}
			if journalDir != "" {
				j, err := encrypted.OpenJournal(journalDir)
				if err != nil {
					return err
				}
				defer j.Close()
				poolCfg.Journal = j
			}
			reg := prometheus.NewRegistry()
			pool, err := encrypted.NewPool(poolCfg, e.log, reg)
			if err != nil {
				return err
			}
			if _, err := pool.Recover(); err != nil {
				return err
			}

			out := batchOutput{Epoch: types.Epoch(c.Uint64("epoch")), Txs: []batchTx{}}
			files := c.Args().Slice()
			txs := make([]*types.Tx, 0, len(files))
			sources := make([]string, 0, len(files))
			for _, path := range files {
				tx, err := readEnvelope(path)
				if err != nil {
					out.Rejected = append(out.Rejected, batchFailure{Source: path, Error: err.Error()})
					continue
				}
				txs = append(txs, tx)
				sources = append(sources, path)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			for i, err := range pool.AddBatch(ctx, txs) {
				if err != nil {
					out.Rejected = append(out.Rejected, batchFailure{Source: sources[i], Error: err.Error()})
				}
			}
			res, err := pool.DecryptEpoch(ctx, out.Epoch, dk)
			if err != nil {
				return err
			}
			for _, d := range res.Decrypted {
				out.Txs = append(out.Txs, batchTx{
					Hash:     d.Entry.Hash,
					FeePayer: d.Entry.Wrapper.FeePayer(),
					Fee:      d.Entry.Wrapper.Fee,
					Tx:       d.Tx,
				})
			}
			for _, r := range res.Rejected {
				out.Rejected = append(out.Rejected, batchFailure{Source: r.Entry.Hash.Hex(), Error: r.Err.Error()})
			}
			if left := pool.Len(); left > 0 {
				e.log.Warn("Wrappers of other epochs were not decrypted", "count", left, "epochs", pool.Epochs())
			}

			if path := c.String("metrics"); path != "" {
				if err := writeMetrics(path, reg); err != nil {
					return err
				}
			}
			return printJSON(c.App.Writer, out)
		},
	}
}

func writeMetrics(path string, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
