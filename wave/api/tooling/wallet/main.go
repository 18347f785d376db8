// This program creates a local wallet the client can detect, and proves the
// key can sign by recovering the address from a signed message.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/waveportal/wave/app/sdk/wallet"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := struct {
		conf.Version
		Wallet struct {
			Kind       string `conf:"default:keyfile"`
			Path       string `conf:"default:wave/zarf/wallet"`
			Passphrase string `conf:"mask"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "Wave Portal Wallet",
		},
	}

	const prefix = "WAVE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	if err := os.MkdirAll(cfg.Wallet.Path, os.ModePerm); err != nil {
		return fmt.Errorf("wallet dir: %w", err)
	}

	switch cfg.Wallet.Kind {
	case wallet.KindKeyFile:
		return keyFile(cfg.Wallet.Path)

	case wallet.KindKeyStore:
		return keyStore(cfg.Wallet.Path, cfg.Wallet.Passphrase)
	}

	return fmt.Errorf("unknown wallet kind %q", cfg.Wallet.Kind)
}

func keyFile(path string) error {
	kf := wallet.NewKeyFile(path)

	ids, err := kf.RequestAccounts(context.Background())
	if err != nil {
		return fmt.Errorf("request accounts: %w", err)
	}

	fmt.Println("*** KEY FILE ***")
	fmt.Printf("ID : %s\n", ids[0].Hex())

	privateKey, err := crypto.LoadECDSA(kf.KeyPath())
	if err != nil {
		return fmt.Errorf("loadECDSA: %w", err)
	}

	// -------------------------------------------------------------------------
	// Sign Data

	hash := accounts.TextHash([]byte("Hello, Wave Portal!"))

	sig, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	fmt.Printf("ID2: %s\n", crypto.PubkeyToAddress(*pub).Hex())

	return nil
}

func keyStore(path string, passphrase string) error {
	ks := keystore.NewKeyStore(path, keystore.StandardScryptN, keystore.StandardScryptP)

	if len(ks.Accounts()) == 0 {
		if _, err := ks.NewAccount(passphrase); err != nil {
			return fmt.Errorf("new account: %w", err)
		}
	}

	fmt.Println("*** KEY STORE ***")
	for _, acc := range ks.Accounts() {
		fmt.Printf("ID : %s  %s\n", acc.Address.Hex(), acc.URL.Path)
	}

	acc := ks.Accounts()[0]

	hash := accounts.TextHash([]byte("Hello, Wave Portal!"))

	sig, err := ks.SignHashWithPassphrase(acc, passphrase, hash)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	fmt.Printf("ID2: %s\n", crypto.PubkeyToAddress(*pub).Hex())

	return nil
}
