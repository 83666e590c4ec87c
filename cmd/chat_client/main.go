package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"service_marketplace/internal/chat/client"
	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/config"
	"service_marketplace/pkg/logger"
	"service_marketplace/pkg/token"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatClient, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	flags := pflag.NewFlagSet(config.EnvConfig.ChatClient, pflag.ExitOnError)
	flags.String("server", "ws://localhost:3000/ws", "chat service websocket url")
	flags.String("token", "", "jwt of the local member")
	flags.String("self", "", "member id, used to mint a dev token when --token is empty")
	flags.String("peer", "", "peer to open on start")
	secret := flags.String("secret", os.Getenv("SECRET_KEY"), "jwt secret for minting a dev token")
	_ = flags.Parse(os.Args[1:])

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		logger.Log.Fatal("bind flags", zap.Error(err))
	}
	cfg, err := config.ReadConfig[config.ChatClient](v, config.EnvConfig.ChatClient, config.EnvConfig.ChatClientYAMLPath)
	if err != nil {
		// flags alone are enough
		logger.Log.Warn("chat client config", zap.Error(err))
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Log.Fatal("chat client flags", zap.Error(err))
		}
	}

	if cfg.Token == "" {
		if cfg.Self == "" {
			fmt.Fprintln(os.Stderr, "either --token or --self is required")
			os.Exit(2)
		}
		token.SetSecret(*secret)
		cfg.Token, err = token.GenerateJWT(cfg.Self, string(token.RoleUser), config.EnvConfig.ChatClient)
		if err != nil {
			logger.Log.Fatal("mint token", zap.Error(err))
		}
	} else if claims, err := token.ParseJWT(cfg.Token); err == nil {
		cfg.Self = claims.MemberID
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, cfg.Server, cfg.Token)
	if err != nil {
		logger.Log.Fatal("dial chat service", zap.String("server", cfg.Server), zap.Error(err))
	}
	defer conn.Close()

	session := client.NewSession(cfg.Self, conn)
	conn.OnPush(func(ev domain.MessageEvent) {
		session.HandlePush(ev)
		if ev.Counterpart(cfg.Self) == session.Peer() {
			printEntry(cfg.Self, client.Entry{Message: ev.Message})
		} else if ev.SenderID != cfg.Self {
			fmt.Printf("* new message from %s (%d unread)\n", ev.SenderID, session.Unread()[ev.SenderID])
		}
	})

	if err := withTimeout(ctx, conn.Join); err != nil {
		logger.Log.Fatal("join room", zap.Error(err))
	}
	if cfg.Peer != "" {
		openPeer(ctx, session, cfg.Self, cfg.Peer)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("commands: /open <peer>  /close  /peers  /unread  /quit, anything else is sent")
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			fmt.Fprintln(os.Stderr, "connection lost:", conn.Err())
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := runCommand(ctx, conn, session, cfg.Self, strings.TrimSpace(line)); quit {
				return
			}
		}
	}
}

func runCommand(ctx context.Context, conn *client.Conn, session *client.Session, self, line string) bool {
	switch {
	case line == "":
	case line == "/quit":
		return true
	case strings.HasPrefix(line, "/open "):
		openPeer(ctx, session, self, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
	case line == "/close":
		session.Close()
	case line == "/peers":
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		peers, err := conn.ListPeers(reqCtx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list peers:", err)
			return false
		}
		for _, p := range peers {
			fmt.Printf("  %s  %s\n", p.Identity, p.DisplayName)
		}
	case line == "/unread":
		for peer, n := range session.Unread() {
			fmt.Printf("  %s: %d\n", peer, n)
		}
		fmt.Printf("  total: %d\n", session.TotalUnread())
	default:
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		if _, err := session.Send(reqCtx, line); err != nil {
			fmt.Fprintln(os.Stderr, "send failed:", err)
		}
	}
	return false
}

func openPeer(ctx context.Context, session *client.Session, self, peer string) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := session.Open(reqCtx, peer); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return
	}
	fmt.Printf("--- %s ---\n", peer)
	for _, e := range session.Messages() {
		printEntry(self, e)
	}
}

func printEntry(self string, e client.Entry) {
	who := e.SenderID
	if who == self {
		who = "me"
	}
	fmt.Printf("[%s] %s: %s\n", e.CreatedAt.Local().Format("15:04:05"), who, e.Body)
}

func withTimeout(ctx context.Context, f func(context.Context) error) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return f(reqCtx)
}
