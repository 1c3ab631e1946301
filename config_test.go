package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		server  string
		delay   time.Duration
		want    string
		wantErr string
	}{
		{server: "http://localhost:8000", delay: time.Second, want: "ws://localhost:8000"},
		{server: "https://pasur.example.com", delay: time.Second, want: "wss://pasur.example.com"},
		{server: "wss://pasur.example.com/base", delay: time.Second, want: "wss://pasur.example.com/base"},
		{server: "ftp://pasur.example.com", delay: time.Second, wantErr: "scheme"},
		{server: "ws:///nohost", delay: time.Second, wantErr: "no host"},
		{server: "ws://localhost", delay: 0, wantErr: "reconnect delay"},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			cfg := &Config{server: tt.server, reconnectDelay: tt.delay}

			err := cfg.validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want one mentioning %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if got := cfg.serverURL.String(); got != tt.want {
				t.Errorf("server url = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	ok := Config{port: 8080, sessionTimeout: time.Minute}
	if err := ok.validateServe(); err != nil {
		t.Fatalf("validateServe: %v", err)
	}

	bad := map[string]Config{
		"lone cert":        {port: 8080, tlsCert: "cert.pem"},
		"port zero":        {port: 0},
		"port too large":   {port: 70000},
		"negative timeout": {port: 8080, sessionTimeout: -time.Second},
	}
	for name, cfg := range bad {
		if err := cfg.validateServe(); err == nil {
			t.Errorf("%s: validateServe accepted %+v", name, cfg)
		}
	}
}

func TestSocketURLs(t *testing.T) {
	cfg := testConfig(t, "https://pasur.example.com/site/")

	if got, want := cfg.gameSocketURL("17"), "wss://pasur.example.com/site/ws/pasur/17/"; got != want {
		t.Errorf("game socket = %q, want %q", got, want)
	}
	if got, want := cfg.menuSocketURL(), "wss://pasur.example.com/site/ws/pasur_menu/"; got != want {
		t.Errorf("menu socket = %q, want %q", got, want)
	}
	if got, want := cfg.pageURL("/pasur/17/"), "https://pasur.example.com/pasur/17/"; got != want {
		t.Errorf("page url = %q, want %q", got, want)
	}
}

func TestHeaderCarriesSession(t *testing.T) {
	cfg := &Config{session: "abc"}
	if got := cfg.header().Get("Cookie"); got != "sessionid=abc" {
		t.Errorf("cookie = %q", got)
	}

	cfg.session = ""
	if got := cfg.header().Get("Cookie"); got != "" {
		t.Errorf("cookie without session = %q", got)
	}
}

func TestMatchIDFromURL(t *testing.T) {
	tests := map[string]string{
		"/pasur/3/":                    "3",
		"/pasur/12":                    "12",
		"https://example.com/pasur/9/": "9",
	}
	for in, want := range tests {
		got, err := matchIDFromURL(in)
		if err != nil || got != want {
			t.Errorf("matchIDFromURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	for _, in := range []string{"", "/"} {
		if _, err := matchIDFromURL(in); err == nil {
			t.Errorf("matchIDFromURL(%q) succeeded", in)
		}
	}
}

func TestBindEnv(t *testing.T) {
	t.Setenv("ELVA_RECONNECT_DELAY", "7s")
	t.Setenv("ELVA_PLAYER", "from-env")

	var delay time.Duration
	var player string

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	normalizeFlags(fs)
	fs.DurationVar(&delay, "reconnect-delay", time.Second, "")
	fs.StringVar(&player, "player", "", "")

	if err := fs.Parse([]string{"--player=from-flag"}); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetEnvPrefix("ELVA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindEnv(v, fs)

	if delay != 7*time.Second {
		t.Errorf("delay = %s, want 7s from the environment", delay)
	}
	if player != "from-flag" {
		t.Errorf("player = %q, want the flag to win over the environment", player)
	}
}

func TestNormalizeFlags(t *testing.T) {
	var delay time.Duration

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	normalizeFlags(fs)
	fs.DurationVar(&delay, "reconnect-delay", time.Second, "")

	if err := fs.Parse([]string{"--reconnect_delay=2s"}); err != nil {
		t.Fatal(err)
	}
	if delay != 2*time.Second {
		t.Errorf("delay = %s, want 2s", delay)
	}
}
