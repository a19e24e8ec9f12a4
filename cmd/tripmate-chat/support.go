// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/term"

	"github.com/tripmate-app/tripmate/chat"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/sealed"
	"github.com/tripmate-app/tripmate/lib/secret"
	"github.com/tripmate-app/tripmate/lib/tui"
)

// tokenEnvironmentVariable holds the session token when --token-file is
// not given. It is cleared after reading.
const tokenEnvironmentVariable = "TRIPMATE_TOKEN"

// usageError is an invalid invocation. It exits with status 2.
type usageError struct {
	err error
}

func usage(format string, args ...any) *usageError {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// ExitCode implements the exit status interface checked by main.
func (e *usageError) ExitCode() int { return 2 }

// resolveToken reads the session token from tokenFile when set, else
// from the environment. A sealed token file needs identityFile.
func resolveToken(getenv func(string) string, tokenFile, identityFile string) (*secret.Token, error) {
	if tokenFile != "" && sealed.IsSealed(tokenFile) {
		if identityFile == "" {
			return nil, usage("%s is sealed; pass --identity-file to decrypt it", tokenFile)
		}
		token, err := sealed.OpenTokenFile(tokenFile, identityFile)
		if err != nil {
			return nil, usage("opening sealed token %s: %v", tokenFile, err)
		}
		return token, nil
	}
	if tokenFile != "" {
		token, err := secret.ReadToken(tokenFile)
		if err != nil {
			return nil, usage("reading token from %s: %v", tokenFile, err)
		}
		return token, nil
	}
	value := getenv(tokenEnvironmentVariable)
	if value == "" {
		return nil, usage("no session token: set %s or pass --token-file", tokenEnvironmentVariable)
	}
	token, err := secret.NewTokenString(value)
	if err != nil {
		return nil, fmt.Errorf("storing session token: %w", err)
	}
	return token, nil
}

// sealToken encrypts the session token to the --seal-to recipients and
// writes the armored result to w.
func sealToken(getenv func(string) string, opts options, w io.Writer) error {
	for _, recipient := range opts.sealTo {
		if err := sealed.ParseRecipient(recipient); err != nil {
			return usage("%v", err)
		}
	}
	token, err := resolveToken(getenv, opts.tokenFile, opts.identityFile)
	if err != nil {
		return err
	}
	defer token.Close()
	return sealed.Seal(w, []byte(token.String()), opts.sealTo)
}

// matchPeer picks the participant a --peer value names. An exact id
// wins; otherwise the single best fuzzy match on display names. A
// query matching no name is taken as the id of a peer with no
// conversation yet.
func matchPeer(conversations []schema.ConversationSummary, query string) (schema.Participant, error) {
	for _, summary := range conversations {
		if summary.Peer.ID == query {
			return summary.Peer, nil
		}
	}

	slab := tui.NewSlab()
	pattern := []rune(query)
	var best []schema.Participant
	bestScore := 0
	for _, summary := range conversations {
		score := tui.FuzzyMatch(summary.Peer.Name, pattern, slab).Score
		switch {
		case score == 0 || score < bestScore:
		case score > bestScore:
			bestScore = score
			best = []schema.Participant{summary.Peer}
		default:
			best = append(best, summary.Peer)
		}
	}

	switch len(best) {
	case 0:
		return schema.Participant{ID: query, Name: query}, nil
	case 1:
		return best[0], nil
	default:
		names := make([]string, len(best))
		for index, candidate := range best {
			names[index] = fmt.Sprintf("%s (%s)", candidate.Name, candidate.ID)
		}
		return schema.Participant{}, usage("--peer %q is ambiguous: %s", query, strings.Join(names, ", "))
	}
}

// parseLevel maps a validated log.level value to a slog level.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newCommandLogger writes text to a terminal stderr and JSON otherwise,
// so piped output stays machine-parseable.
func newCommandLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// compressedLogSuffix selects zstd compression for the log file.
const compressedLogSuffix = ".zst"

// openFileLogHandler creates a JSON handler writing to path, which is
// created or truncated. A path ending in .zst is zstd-compressed. The
// returned function flushes and closes the file.
func openFileLogHandler(path string, level slog.Level) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	if !strings.HasSuffix(path, compressedLogSuffix) {
		return slog.NewJSONHandler(file, options), func() { file.Close() }, nil
	}

	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	writer := &lockedWriter{writer: encoder}
	closeFile := func() {
		writer.mu.Lock()
		encoder.Close()
		writer.mu.Unlock()
		file.Close()
	}
	return slog.NewJSONHandler(writer, options), closeFile, nil
}

// lockedWriter serializes writes to a writer that is not safe for
// concurrent use.
type lockedWriter struct {
	mu     sync.Mutex
	writer io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Write(p)
}

// fanoutHandler sends each record to every handler enabled for its
// level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}

// printConversations writes the conversation list as a table.
func printConversations(w io.Writer, conversations []schema.ConversationSummary) error {
	if len(conversations) == 0 {
		_, err := fmt.Fprintln(w, "No conversations yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "PEER\tNAME\tUNREAD\tLAST MESSAGE\n")
	for _, summary := range conversations {
		last := "-"
		if summary.LastMessage != nil {
			last = fmt.Sprintf("%s  %s", chat.DayLabel(summary.LastMessage.CreatedAt, nowFunc()), preview(summary.LastMessage.Content))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", summary.Peer.ID, summary.Peer.Name, summary.UnreadCount, last)
	}
	return tw.Flush()
}

// previewLength caps the last-message column, in terminal cells.
const previewLength = 40

// nowFunc is the reference time for day labels.
var nowFunc = time.Now

func preview(content string) string {
	return ansi.Truncate(strings.ReplaceAll(content, "\n", " "), previewLength, "…")
}
