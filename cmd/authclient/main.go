// Command authclient signs in against an otp-auth server and keeps the
// session alive from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"otp-auth/internal/client"
	"otp-auth/pkg/utils"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const usage = `Usage: authclient [flags] <command> [args]

Commands:
  login <email>          send a one-time code to email
  verify <email> <code>  exchange the code for a session
  refresh                rotate the stored token pair
  me                     print the signed-in user
  logout                 end the session and forget the tokens
  watch                  keep the session fresh until interrupted
                         (SIGUSR1 marks it backgrounded, SIGUSR2 foregrounded)

Flags:
`

type options struct {
	Server    string
	TokenFile string
	Interval  time.Duration
	Debug     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("authclient: %v", err)
	}
}

func loadOptions(args []string, out io.Writer) (*options, []string, error) {
	flags := pflag.NewFlagSet("authclient", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprint(out, usage)
		flags.PrintDefaults()
	}
	flags.String("server", "http://localhost:8080", "otp-auth server base URL")
	flags.String("token-file", defaultTokenFile(), "where the session tokens are kept")
	flags.Duration("interval", client.DefaultCheckInterval, "how often watch inspects the access token")
	flags.Bool("debug", false, "log every API call")

	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("AUTHCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, nil, err
	}

	opts := &options{
		Server:    v.GetString("server"),
		TokenFile: v.GetString("token-file"),
		Interval:  v.GetDuration("interval"),
		Debug:     v.GetBool("debug"),
	}
	return opts, flags.Args(), nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authclient.json"
	}
	return filepath.Join(dir, "otp-auth", "tokens.json")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, rest, err := loadOptions(args, out)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	logger := zap.NewNop()
	if opts.Debug {
		if logger, err = utils.InitLogger("", "authclient", true); err != nil {
			return err
		}
		defer logger.Sync()
	}

	storage, err := client.NewFileTokenStorage(opts.TokenFile)
	if err != nil {
		return err
	}
	gateway := client.NewHTTPGateway(opts.Server, nil, logger)
	auth := client.NewAuthenticator(gateway, storage)

	command, params := rest[0], rest[1:]
	switch command {
	case "login":
		if len(params) != 1 {
			return errors.New("usage: login <email>")
		}
		if err := auth.RequestOTP(ctx, params[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Code sent to %s\n", params[0])

	case "verify":
		if len(params) != 2 {
			return errors.New("usage: verify <email> <code>")
		}
		user, err := auth.Verify(ctx, params[0], params[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Signed in as %s (%s)\n", user.Email, user.Role)

	case "refresh":
		if err := client.NewRefreshTokens(storage, gateway).Execute(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Token refreshed")

	case "me":
		user, err := client.NewAuthenticatedClient(gateway, storage, nil).Me(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(user)

	case "logout":
		if err := auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")

	case "watch":
		return watch(ctx, storage, gateway, opts.Interval, logger, out)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func watch(ctx context.Context, storage client.TokenStorage, gateway *client.HTTPGateway, interval time.Duration, logger *zap.Logger, out io.Writer) error {
	if _, ok := storage.AccessToken(); !ok {
		return client.ErrNotAuthenticated
	}

	visibility := client.NewVisibilityNotifier()
	refresher := client.NewRefreshTokens(storage, gateway)
	scheduler := client.NewScheduler(storage, refresher.Execute,
		client.WithInterval(interval),
		client.WithVisibility(visibility),
		client.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	expired := make(chan struct{})
	var once sync.Once
	scheduler.OnSessionExpired(func() {
		once.Do(func() {
			scheduler.Stop()
			close(expired)
		})
	})

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(signals)

	fmt.Fprintln(out, "Watching session, press Ctrl+C to stop")
	scheduler.Start(ctx)
	defer scheduler.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-expired:
			return client.ErrSessionExpired
		case sig := <-signals:
			visibility.SetVisible(sig == syscall.SIGUSR2)
		}
	}
}
