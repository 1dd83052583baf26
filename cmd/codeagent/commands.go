package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/driftwood-dev/codeagent/pkg/agent"
	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/server"
	"github.com/driftwood-dev/codeagent/pkg/session"
)

// ChatCmd sends one message through the agent and prints the streamed
// response, mirroring codesm's non-interactive `chat` subcommand.
type ChatCmd struct {
	Message string `arg:"" help:"Message to send."`
	Session string `short:"s" help:"Resume a previous session by id."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cwd, err := filepath.Abs(cli.Dir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := resolveConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	providers, err := buildProviderRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	ctx := context.Background()
	builder := agent.NewFacadeBuilder(cwd).WithProviders(providers)
	if cfg.PermissionMode == "prompt" {
		builder = builder.WithPermission(permission.NewPromptGate(os.Stdin, os.Stdout))
	}
	facade, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}
	defer facade.Cleanup(ctx)

	if c.Session != "" {
		if _, err := facade.ResumeSession(c.Session); err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
	} else if _, err := facade.NewSession(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	for chunk := range facade.Chat(ctx, c.Message) {
		printChunk(chunk)
	}
	fmt.Println()
	return nil
}

func printChunk(chunk message.StreamChunk) {
	switch chunk.Kind {
	case message.ChunkText:
		fmt.Print(chunk.Text)
	case message.ChunkToolCall:
		if chunk.ToolCall != nil {
			fmt.Printf("\n[running %s]\n", chunk.ToolCall.Name)
		}
	case message.ChunkToolResult:
		fmt.Printf("[%s done]\n", chunk.ToolResultName)
	case message.ChunkError:
		fmt.Fprintf(os.Stderr, "\nerror: %v\n", chunk.Err)
	}
}

// ServeCmd starts the HTTP chat server.
type ServeCmd struct {
	Port int    `short:"p" help:"Port to listen on." default:"4096"`
	Host string `help:"Host to bind." default:"127.0.0.1"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cwd, err := filepath.Abs(cli.Dir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := resolveConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	providers, err := buildProviderRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	facade, err := agent.NewFacadeBuilder(cwd).WithProviders(providers).Build(ctx)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}
	defer facade.Cleanup(ctx)

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	srv := &http.Server{Addr: addr, Handler: server.New(facade, nil)}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	fmt.Printf("codeagent serving on http://%s\n", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// SessionsCmd lists saved sessions for the working directory.
type SessionsCmd struct{}

func (c *SessionsCmd) Run(cli *CLI) error {
	cwd, err := filepath.Abs(cli.Dir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	store, err := session.NewStore(filepath.Join(cwd, ".codeagent", "sessions"), nil)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.UpdatedAt.Format("2006-01-02 15:04"), s.Title)
	}
	return nil
}
