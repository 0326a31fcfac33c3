// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/pushover"
	"github.com/bvk/autotrader/server"
	"github.com/bvk/autotrader/subcmds/defaults"
	"github.com/bvk/autotrader/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"golang.org/x/term"
)

type Setup struct {
	dataDir     string
	secretsPath string
	skipTesting bool
}

func (c *Setup) Synopsis() string {
	return "Setup prints and/or configures the notification services"
}

func (c *Setup) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", "", "path to the data directory")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return fset, cli.CmdFunc(c.run)
}

func (c *Setup) CommandHelp() string {
	return `

Command "setup" helps users configure notification keys for the Telegram
and Pushover services. Command prints current config when run without any
arguments.

TELEGRAM PARAMETERS

Telegram configuration is optional. This is only required to receive
notifications and issue commands from mobile phones through a Telegram
bot. They can be configured as follows:

  $ autotrader setup telegram-owner=username

The bot token is read interactively so that it doesn't end up in the
shell history. Pass telegram-token=... explicitly to skip the prompt.

PUSHOVER PARAMETERS

Pushover keys are optional. They are required to receive notifications to
the mobile phones when Telegram is not configured. They can be configured
as follows:

  $ autotrader setup pushover-app=awja5ue...ito7svf pushover-user=uscjs2...tvp4kv
`
}

func (c *Setup) run(ctx context.Context, args []string) error {
	if len(c.dataDir) == 0 {
		c.dataDir = defaults.DataDir()
	}
	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if len(args) == 0 {
			return fmt.Errorf("autotrader is not configured")
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := server.SecretsFromFile(c.secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("autotrader is not configured")
		}
	}

	if len(args) == 0 {
		js, _ := json.MarshalIndent(secrets, "", "  ")
		fmt.Printf("%s\n", js)
		return nil
	}

	if secrets == nil {
		secrets = &server.Secrets{}
	}

	validKeys := []string{"telegram-token", "telegram-owner", "telegram-admin", "pushover-app", "pushover-user"}
	kvMap := make(map[string]string)
	// Parse config values from the command-line.
	for _, arg := range args {
		before, after, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("invalid config argument %q", arg)
		}
		if !slices.Contains(validKeys, before) {
			return fmt.Errorf("invalid/unrecognized config item key %q", before)
		}
		if v, ok := kvMap[before]; ok && v != after {
			return fmt.Errorf("config item key %q is found with different values", before)
		}
		kvMap[before] = after
	}

	telegramOwner := kvMap["telegram-owner"]
	telegramToken := kvMap["telegram-token"]
	if len(telegramOwner) != 0 || len(telegramToken) != 0 {
		if len(telegramOwner) == 0 {
			return fmt.Errorf(`the "telegram-owner" parameter is required`)
		}
		if len(telegramToken) == 0 {
			fmt.Print("telegram bot token: ")
			data, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("could not read bot token: %w", err)
			}
			telegramToken = strings.TrimSpace(string(data))
		}
		secrets.Telegram = &telegram.Secrets{
			BotToken: telegramToken,
			OwnerID:  telegramOwner,
			AdminID:  kvMap["telegram-admin"],
		}
		if !c.skipTesting {
			// Attempt to authenticate with telegram to validate the token.
			client, err := telegram.New(ctx, kvmemdb.New(), secrets.Telegram)
			if err != nil {
				return err
			}
			client.Close()
		}
	}

	pushoverApp := kvMap["pushover-app"]
	pushoverUser := kvMap["pushover-user"]
	if len(pushoverUser) != 0 || len(pushoverApp) != 0 {
		if len(pushoverApp) == 0 || len(pushoverUser) == 0 {
			return fmt.Errorf(`both "pushover-app" and "pushover-user" parameters are required`)
		}
		secrets.Pushover = &pushover.Keys{
			ApplicationKey: pushoverApp,
			UserKey:        pushoverUser,
		}
		if !c.skipTesting {
			// Attempt to authenticate with pushover to validate the keys.
			client, err := pushover.New(secrets.Pushover)
			if err != nil {
				return err
			}
			if err := client.SendMessage(ctx, time.Now(), "Test message from Pushover config setup; please ignore."); err != nil {
				return err
			}
		}
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.secretsPath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}
