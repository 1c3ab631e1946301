package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	gamePath       string
	menuPath       string
	player         string
	reconnectDelay time.Duration
	server         string
	session        string
	verbose        bool

	bind           string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string

	serverURL *url.URL
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.server, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return fmt.Errorf("invalid server url scheme (must be one of http, https, ws, wss): %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server url has no host: %q", c.server)
	}
	c.serverURL = u

	if c.reconnectDelay <= 0 {
		return fmt.Errorf("invalid reconnect delay (must be positive): %s", c.reconnectDelay)
	}
	return nil
}

func (c *Config) validateServe() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// socketURL joins p onto the server url.
func (c *Config) socketURL(p string) string {
	u := *c.serverURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(p, "/")
	return u.String()
}

func (c *Config) gameSocketURL(match string) string {
	return c.socketURL(strings.TrimSuffix(c.gamePath, "/") + "/" + url.PathEscape(match) + "/")
}

func (c *Config) menuSocketURL() string {
	return c.socketURL(c.menuPath)
}

// pageURL resolves a server-relative page link, such as a match game_url,
// into an absolute browser url.
func (c *Config) pageURL(link string) string {
	u := *c.serverURL
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = ""
	u.RawQuery = ""

	ref, err := url.Parse(link)
	if err != nil {
		return u.String() + link
	}
	return u.ResolveReference(ref).String()
}

func (c *Config) header() http.Header {
	h := http.Header{}
	if c.session != "" {
		h.Set("Cookie", (&http.Cookie{Name: "sessionid", Value: c.session}).String())
	}
	return h
}

// matchIDFromURL extracts the match id from a game url like /pasur/3/.
func matchIDFromURL(gameURL string) (string, error) {
	u, err := url.Parse(gameURL)
	if err != nil {
		return "", err
	}
	id := path.Base(strings.TrimSuffix(u.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("no match id in %q", gameURL)
	}
	return id, nil
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// bindEnv fills every flag not given on the command line from its ELVA_
// environment variable.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ELVA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "elva",
		Short:         "A client for Pasur card game servers.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bindEnv(v, cmd.Flags())

			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), cfg)
		},
	}

	pfs := cmd.PersistentFlags()

	normalizeFlags(pfs)

	pfs.StringVar(&cfg.gamePath, "game-path", "/ws/pasur/", "server path of game sockets, followed by the match id (env: ELVA_GAME_PATH)")
	pfs.StringVar(&cfg.menuPath, "menu-path", "/ws/pasur_menu/", "server path of the lobby socket (env: ELVA_MENU_PATH)")
	pfs.StringVarP(&cfg.player, "player", "u", "", "player name, as known to the server (env: ELVA_PLAYER)")
	pfs.DurationVar(&cfg.reconnectDelay, "reconnect-delay", 3*time.Second, "time to wait before redialing a dropped socket (env: ELVA_RECONNECT_DELAY)")
	pfs.StringVarP(&cfg.server, "server", "s", "ws://localhost:8000", "game server url (env: ELVA_SERVER)")
	pfs.StringVar(&cfg.session, "session", "", "server session cookie value (env: ELVA_SESSION)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: ELVA_VERBOSE)")

	cmd.AddCommand(newMenuCmd(cfg), newPlayCmd(cfg), newServeCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("elva v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newMenuCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Browse ongoing matches and join one.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), cfg)
		},
	}
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play <match>",
		Short: "Join a match by id and play it in the terminal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGame(cmd.Context(), cfg, args[0])
		},
	}
}

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lobby and game screens as JSON over HTTP.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateServe(); err != nil {
				return err
			}
			return ServeViewer(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	normalizeFlags(fs)

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind to (env: ELVA_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: ELVA_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: ELVA_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: ELVA_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 30*time.Minute, "time before unused game screens are closed (env: ELVA_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: ELVA_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: ELVA_TLS_KEY)")

	return cmd
}
