package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/pktgen/delta"
	"github.com/luma/pktgen/emit"
	"github.com/luma/pktgen/internal/env"
	"github.com/luma/pktgen/transport"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort string

	// The port to listen for tcp clients on
	port int

	// Offered capabilities
	capabilities string

	jsonMode bool
	trace    bool
)

func init() {
	flags := ServeCmd.PersistentFlags()

	flags.IntVarP(&port, "port", "p", 5556, "The port to listen for client connections on")
	flags.StringVar(&httpPort, "http-port", "5557", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
	flags.StringVarP(&capabilities, "capabilities", "c", "", "Capabilities offered to clients, defaults to every capability of the schema")
	flags.BoolVar(&jsonMode, "json", false, "Encode packet bodies as JSON")
	flags.BoolVar(&trace, "trace", false, "Log every change of the delta caches")
}

var ServeCmd = &cobra.Command{
	Use:   "serve SCHEMA...",
	Short: "Serve a schema over HTTP and as a TCP echo peer",
	Long: `Serve a schema over HTTP and as a TCP echo peer

Usage
	pktgen serve packets.def

The HTTP API exposes the compiled model. TCP clients exchange capabilities,
then every packet they send that the server may send is echoed back through
the delta protocol.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("capabilities") {
			conf.Capabilities = capabilities
		}

		log, err := env.MakeLogger(conf.Verbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		def, err := parseSchemas(conf.Model(), log, args)
		if err != nil {
			return err
		}

		doc, err := emit.NewDocument(def, args)
		if err != nil {
			return err
		}

		if conf.Capabilities == "" {
			conf.Capabilities = def.FunctionalCapability()
		}

		router := setupRouter(conf.DebugHTTP, log)
		routeDocument(router, doc)

		s := &http.Server{
			Addr:    net.JoinHostPort(host, httpPort),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		mode := delta.Binary
		if jsonMode {
			mode = delta.JSON
		}

		tcp := transport.NewTCP(transport.Options{
			Host:         host,
			Port:         port,
			Definition:   def,
			Capabilities: conf.Capabilities,
			Mode:         mode,
			Trace:        trace,
			Log:          log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.Any("config", conf),
			zap.String("host", host),
			zap.Int("port", port),
			zap.String("httpPort", httpPort),
			zap.Stringer("mode", mode))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func routeDocument(router *gin.Engine, doc *emit.Document) {
	render := func(e emit.Emitter, contentType string) gin.HandlerFunc {
		return func(c *gin.Context) {
			var buf bytes.Buffer
			if err := e.Emit(&buf, doc); err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}

			c.Data(http.StatusOK, contentType, buf.Bytes())
		}
	}

	// Ping test
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/packets", render(emit.JSON{}, "application/json"))
	router.GET("/packets.yaml", render(emit.YAML{}, "application/yaml"))
	router.GET("/table", render(emit.Table{}, "text/plain; charset=utf-8"))

	router.GET("/packets/:name", func(c *gin.Context) {
		name := c.Param("name")

		for _, p := range doc.Packets {
			if p.Type == name || p.Name == name {
				c.JSON(http.StatusOK, p)
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"error": "unknown packet " + name})
	})
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, with UTC
	// RFC3339 timestamps.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
