// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// tripmate-chat is a terminal client for Tripmate's one-to-one chat.
// It signs in with a session token, opens the conversation with one
// peer over the real-time socket, and runs an interactive view of it.
//
// The session token is read from the TRIPMATE_TOKEN environment
// variable or from --token-file ("-" for stdin). It is never accepted
// as a flag, so it does not appear in the process table. A token file
// ending in .age is decrypted with the age identity in --identity-file;
// --seal-to produces such a file from a plain token.
//
// --peer takes a user id or a fuzzy name such as "bru" for "Bruno
// Costa", resolved against the user's conversations.
//
// With --list, the client prints the user's conversations and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/tripmate-app/tripmate/chat"
	"github.com/tripmate-app/tripmate/lib/chatui"
	"github.com/tripmate-app/tripmate/lib/codec"
	"github.com/tripmate-app/tripmate/lib/config"
	"github.com/tripmate-app/tripmate/lib/netutil"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/secret"
	"github.com/tripmate-app/tripmate/lib/tui"
	"github.com/tripmate-app/tripmate/lib/version"
	"github.com/tripmate-app/tripmate/messaging"
	"github.com/tripmate-app/tripmate/socket"
)

// startupTimeout bounds the profile and conversation list requests
// made before the view opens.
const startupTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	peerID       string
	matchID      string
	tokenFile    string
	identityFile string
	sealTo       []string
	list         bool
	logOutput    string
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("tripmate-chat", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to tripmate.yaml (default: $TRIPMATE_CONFIG, then built-in defaults)")
	flagSet.StringVar(&opts.peerID, "peer", "", "user id or name of the person to chat with")
	flagSet.StringVar(&opts.matchID, "match", "", "match id to attach to sent messages")
	flagSet.StringVar(&opts.tokenFile, "token-file", "", `file holding the session token ("-" for stdin)`)
	flagSet.StringVar(&opts.identityFile, "identity-file", "", "age identity file for a sealed (.age) token file")
	flagSet.StringArrayVar(&opts.sealTo, "seal-to", nil, "seal the session token to this age recipient, write it to stdout, and exit (repeatable)")
	flagSet.BoolVar(&opts.list, "list", false, "list conversations and exit")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "write JSON log records to this file (overrides log.file)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return usage("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if *showVersion {
		version.Fprint(os.Stdout, "tripmate-chat")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return usage("unexpected argument: %s", args[0])
	}
	if len(opts.sealTo) > 0 {
		return sealToken(os.Getenv, opts, os.Stdout)
	}
	if !opts.list && opts.peerID == "" {
		return usage("--peer is required (use --list to see your conversations)")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logOutput != "" {
		cfg.Log.File = opts.logOutput
	}

	token, err := resolveToken(os.Getenv, opts.tokenFile, opts.identityFile)
	if err != nil {
		return err
	}
	defer token.Close()
	os.Unsetenv(tokenEnvironmentVariable)

	logger := newCommandLogger(parseLevel(cfg.Log.Level))

	client, err := messaging.NewClient(messaging.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: netutil.NewHTTPClient(cfg.API.Timeout.Std()),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	session := client.Session(token)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	me, err := session.Me(startupCtx)
	if err != nil {
		if messaging.IsStatus(err, http.StatusUnauthorized) {
			return usage("session token rejected; sign in again to get a new one")
		}
		return err
	}

	if opts.list {
		conversations, err := session.Conversations(startupCtx)
		if err != nil {
			return err
		}
		return printConversations(os.Stdout, conversations)
	}

	peer, err := resolvePeer(startupCtx, session, opts.peerID, logger)
	if err != nil {
		return err
	}
	if peer.ID == me.ID {
		return usage("--peer is your own user id")
	}
	return runConversation(ctx, cfg, token, session, me.Participant(), peer, opts.matchID)
}

// loadConfig reads path, or $TRIPMATE_CONFIG when path is empty, or
// falls back to the built-in development defaults.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("TRIPMATE_CONFIG") != "":
		return config.Load()
	default:
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
}

// resolvePeer looks the --peer value up in the conversation list. A
// peer with no conversation yet, or an unreachable list, is taken as a
// raw user id.
func resolvePeer(ctx context.Context, session *messaging.Session, query string, logger *slog.Logger) (schema.Participant, error) {
	conversations, err := session.Conversations(ctx)
	if err != nil {
		logger.Warn("listing conversations failed; showing the peer by id", "error", err)
		return schema.Participant{ID: query, Name: query}, nil
	}
	peer, err := matchPeer(conversations, query)
	if err != nil {
		return schema.Participant{}, err
	}
	if peer.ID != query {
		logger.Info("resolved peer by name", "query", query, "peer", peer.ID, "name", peer.Name)
	}
	return peer, nil
}

// runConversation connects the socket, opens the conversation, and
// runs the view until the user quits.
//
// Once the view owns the terminal, background logging goes through a
// notice handler that shows warnings and errors in the status bar
// instead of writing to stderr, which would corrupt the alt-screen. An
// optional file logger captures every record.
func runConversation(ctx context.Context, cfg *config.Config, token *secret.Token, session *messaging.Session, self, peer schema.Participant, matchID string) error {
	noticeHandler := tui.NewNoticeHandler(slog.LevelWarn)
	var uiLogger *slog.Logger
	if cfg.Log.File != "" {
		fileHandler, closeFile, err := openFileLogHandler(cfg.Log.File, parseLevel(cfg.Log.Level))
		if err != nil {
			return usage("cannot open log file %s: %v", cfg.Log.File, err)
		}
		defer closeFile()
		uiLogger = slog.New(fanoutHandler{noticeHandler, fileHandler})
	} else {
		uiLogger = slog.New(noticeHandler)
	}

	wire, err := codec.ForFormat(codec.Format(cfg.Socket.WireFormat))
	if err != nil {
		return err
	}
	transport, err := socket.NewWebSocketTransport(socket.WebSocketConfig{
		URL:          cfg.Socket.URL,
		PingInterval: cfg.Socket.PingInterval.Std(),
		Logger:       uiLogger,
	})
	if err != nil {
		return err
	}
	dialer, err := socket.NewDialer(socket.DialerConfig{
		Transport:  transport,
		Codec:      wire,
		Reconnect:  cfg.Socket.ReconnectEnabled(),
		MaxBackoff: cfg.Socket.MaxBackoff.Std(),
		Logger:     uiLogger,
	})
	if err != nil {
		return err
	}
	conn, err := dialer.Open(ctx, token)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Socket.URL, err)
	}
	defer conn.Close()

	controller, err := chat.NewController(chat.Config{
		Self:              self,
		Peer:              peer,
		MatchID:           matchID,
		Socket:            conn,
		History:           session,
		TypingDebounce:    cfg.Chat.TypingDebounce.Std(),
		PeerTypingTimeout: cfg.Chat.PeerTypingTimeout.Std(),
		ReconcileEcho:     cfg.Chat.ReconcileEcho,
		Logger:            uiLogger,
	})
	if err != nil {
		return err
	}
	defer controller.Close()

	model := chatui.NewModel(controller)
	model.SetTheme(tui.DetectTheme(os.Stdout))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	noticeHandler.SetProgram(program)

	// The history requests use the session token, so they must finish
	// before the caller closes it.
	openCtx, cancelOpen := context.WithCancel(ctx)
	opened := make(chan struct{})
	go func() {
		defer close(opened)
		// Failures are already shown to the user as notices.
		if err := controller.Open(openCtx); err != nil {
			uiLogger.Debug("opening conversation", "error", err)
		}
	}()

	_, err = program.Run()
	cancelOpen()
	<-opened
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tripmate-chat: chat with a Tripmate travel companion from the terminal.

The session token comes from $TRIPMATE_TOKEN or --token-file.

Usage:
  tripmate-chat --peer <user-id|name> [flags]
  tripmate-chat --list [flags]
  tripmate-chat --seal-to <age-recipient> [flags] > token.age

Examples:
  # See who you have been talking to
  TRIPMATE_TOKEN=... tripmate-chat --list

  # Open the conversation with a matched companion
  tripmate-chat --token-file ~/.config/tripmate/token --peer u42 --match m7

  # Keep the token encrypted at rest and pick the peer by name
  TRIPMATE_TOKEN=... tripmate-chat --seal-to age1... > ~/.config/tripmate/token.age
  tripmate-chat --token-file ~/.config/tripmate/token.age \
      --identity-file ~/.config/tripmate/identity.txt --peer bruno

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
