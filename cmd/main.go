package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"nojschat/domain"
	"nojschat/domain/event"
	"nojschat/internal"
	"nojschat/moderation"
	"nojschat/repositories"
	"nojschat/runtime"
	"nojschat/runtime/workers"
	"nojschat/services"
	"nojschat/sshd"
	"nojschat/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so 'defer' cleanup executes before the
// process exits and startup failures surface before any connection is
// accepted.
func run(args []string) error {
	// 1. Configuration & Logger
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	_ = godotenv.Load()

	config := internal.Default()
	// -c points at a file explicitly; the default config.yml may be absent.
	if err := internal.LoadFile(&config, f.configPath, f.configPath == "config.yml"); err != nil {
		return err
	}
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	f.apply(&config)

	log := logs.GetLoggerFromString(config.LogLevel)
	log.Info("Starting chat server",
		"name", config.ChatName,
		"http_port", config.HTTPPort,
		"ssh_port", config.SSHPort)

	mask, err := config.MaskRune()
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core: repositories, moderation, registry, broadcaster
	identityRepository := repositories.NewIdentityRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log)

	dictionary, err := moderation.LoadDictionary()
	if err != nil {
		return fmt.Errorf("loading censored words failed: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(dictionary.Words), strings.Join(dictionary.Languages, ",")))
	moderator, err := moderation.NewModerator(dictionary.Words, mask)
	if err != nil {
		return err
	}

	registry := runtime.NewRegistry(log, identityRepository)
	broadcaster := runtime.NewBroadcaster(log, registry, messageRepository,
		moderator, runtime.NewWaiter(), config.DeliveryTimeout, config.MaxContentLength)
	if err := broadcaster.Prime(); err != nil {
		return fmt.Errorf("reading last sequence failed: %w", err)
	}
	chatService := services.NewChatService(registry, broadcaster, messageRepository)

	// 4. Listeners are bound before any worker starts: a port conflict must
	// terminate the process, not be retried by the supervisor.
	httpListener, err := net.Listen("tcp", fmt.Sprintf(":%d", config.HTTPPort))
	if err != nil {
		return fmt.Errorf("failed to listen on HTTP port %d: %w", config.HTTPPort, err)
	}
	sshListener, err := net.Listen("tcp", fmt.Sprintf(":%d", config.SSHPort))
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("failed to listen on SSH port %d: %w", config.SSHPort, err)
	}

	hostKey, err := sshd.GenerateHostKey()
	if err != nil {
		return fmt.Errorf("host key generation failed: %w", err)
	}

	// 5. Front ends and janitor under supervision
	webServer := web.NewServer(log, chatService, httpListener,
		config.ChatName, config.HistoryLimit, config.PollTimeout, config.MaxContentLength)
	sshServer := sshd.NewServer(log, chatService, sshListener,
		hostKey, config.ChatName, config.HistoryLimit, config.SessionBufferSize)
	janitor := workers.NewJanitorWorker(log, registry,
		func(session *domain.Session) {
			broadcaster.Unsubscribe(session.ID)
			broadcaster.Announce(event.ParticipantLeft{
				Handle: session.Identity().Handle,
				At:     time.Now().UTC(),
			})
		},
		config.HTTPSessionTTL, config.JanitorInterval)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(webServer, sshServer, janitor)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Run(ctx)

	// 7. Final Cleanup
	log.Info("Shutting down gracefully...")
	registry.CloseAll()
	log.Info("Program stopped cleanly")
	return nil
}
