package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bribery/internal/config"
	"bribery/internal/game"
	"bribery/internal/ws"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BRIBERY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bribery",
		Short:         "Real-time bribery party game server.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BRIBERY_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BRIBERY_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally reachable base URL, used for join QR codes (env: BRIBERY_PUBLIC_URL)")
	fs.StringVar(&cfg.PromptsFile, "prompts-file", "", "path to a newline-delimited prompt list (env: BRIBERY_PROMPTS_FILE)")
	fs.DurationVar(&cfg.ReclaimInterval, "reclaim-interval", 5*time.Minute, "how often empty sessions are reclaimed (env: BRIBERY_RECLAIM_INTERVAL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: BRIBERY_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bribery v{{.Version}}\n")

	return cmd
}

func serve(cfg *config.Config) error {
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if !cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	prompts := game.PromptSource(game.DefaultPrompts())
	if cfg.PromptsFile != "" {
		loaded, err := game.LoadPromptFile(cfg.PromptsFile)
		if err != nil {
			return fmt.Errorf("loading prompts: %w", err)
		}
		prompts = loaded
		zerologlog.Info().Int("count", len(loaded)).Str("file", cfg.PromptsFile).Msg("loaded prompts")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	sock := ws.New()
	reg := game.NewRegistry(sock, prompts, game.NewFallbackSource())
	sock.SetRegistry(reg)
	io := sock.Mount(r)
	defer io.Close()

	r.GET("/api/session/:code", func(c *gin.Context) {
		sess, err := reg.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	// PNG QR code for the session's join URL, for sharing across the room.
	r.GET("/api/session/:code/qr", func(c *gin.Context) {
		sess, err := reg.Get(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		base := cfg.PublicURL
		if base == "" {
			scheme := "http"
			if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
				scheme = proto
			}
			base = scheme + "://" + c.Request.Host
		}

		const qrSize = 320
		png, err := qrcode.Encode(strings.TrimSuffix(base, "/")+"/join/"+sess.ID, qrcode.Medium, qrSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	go func() {
		ticker := time.NewTicker(cfg.ReclaimInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n := reg.ReclaimIdle(); n > 0 {
				zerologlog.Info().Int("count", n).Msg("reclaimed idle sessions")
			}
		}
	}()

	zerologlog.Info().Str("addr", cfg.Addr()).Msg("listening")
	return r.Run(cfg.Addr())
}
