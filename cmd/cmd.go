package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/anicoll/musiccast-integration/internal/pkg/config"
	"github.com/anicoll/musiccast-integration/internal/pkg/influx"
	"github.com/anicoll/musiccast-integration/internal/pkg/logic"
	"github.com/anicoll/musiccast-integration/internal/pkg/mqtt"
	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
	"github.com/anicoll/musiccast-integration/internal/pkg/publisher"
	"github.com/anicoll/musiccast-integration/internal/pkg/server"
	"github.com/anicoll/musiccast-integration/internal/pkg/transport"
	"github.com/anicoll/musiccast-integration/pkg/sockets"
)

var (
	ErrInitialSync = errors.New("initial sync failed")
	errCron        = errors.New("cron error")
	errResync      = errors.New("resync failed")
	errDispatch    = errors.New("notification failed")
)

// ServeCommand runs the service until interrupted.
func ServeCommand(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	fleet := newFleet(cfg)
	pub := publisher.New()

	if cfg.MQTT.Host != "" {
		opts := mqtt.NewClientOptions(cfg.MQTT.Host, cfg.MQTT.Username, cfg.MQTT.Password, cfg.MQTT.ClientID)
		svc := mqtt.New(paho_mqtt.NewClient(opts))
		if err := svc.Connect(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer svc.Close()
		if err := pub.Register("mqtt", svc); err != nil {
			return err
		}
	}
	if cfg.Influx.URL != "" {
		sink, err := influx.Connect(c.Context, influx.Config(cfg.Influx))
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := pub.Register("influx", sink); err != nil {
			return err
		}
	}

	errorChan := make(chan error, 1000)
	return run(c.Context, cfg, fleet, server.New(fleet).Router(), pub, errorChan, logger)
}

func newFleet(cfg *config.Config) *logic.Fleet {
	devices := make([]*musiccast.Device, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		tr := transport.New(host, transport.WithTimeout(cfg.HTTPTimeout), transport.WithAppPort(cfg.UDPPort))
		var opts []musiccast.Option
		if desc := cfg.UPnPDescription(host); desc != "" {
			opts = append(opts, musiccast.WithUPnPDescription(desc))
		}
		devices = append(devices, musiccast.New(host, tr, opts...))
	}
	return logic.NewFleet(devices...)
}

// newLogger builds the production logger, teeing into a rotating file when
// file is set.
func newLogger(level, file string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger, err := logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(logCfg.EncoderConfig), rotating, logCfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

// run syncs every device once, then listens for notifications, resyncs on
// the configured schedule and serves handler when it is not nil.
func run(ctx context.Context, cfg *config.Config, svc FleetService, handler http.Handler, pub *publisher.Publisher, errorChan chan error, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	if err := svc.Resync(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrInitialSync, err)
	}
	if pub != nil {
		for _, d := range svc.Devices() {
			if err := pub.RegisterDevice(ctx, d); err != nil {
				return err
			}
			remove := d.AddObserver(pub.Observer(ctx, d))
			defer remove()
			if err := pub.Publish(ctx, d); err != nil {
				return err
			}
		}
	}

	listener := sockets.NewListener(
		sockets.WithPort(cfg.UDPPort),
		sockets.OnStarted(func(addr *net.UDPAddr) {
			logger.Info("listening for notifications", zap.Stringer("addr", addr))
		}),
		sockets.OnMessage(func(msg []byte, addr *net.UDPAddr) {
			if err := svc.Dispatch(ctx, msg, addr.IP.String()); err != nil {
				errorChan <- fmt.Errorf("%w: %s: %w", errDispatch, addr.IP, err)
			}
		}),
		sockets.OnError(func(err error) {
			logger.Warn("udp read failed", zap.Error(err))
		}),
	)
	eg.Go(func() error {
		return listener.Listen(ctx)
	})

	eg.Go(func() error {
		return cronResync(ctx, cfg.ResyncSchedule, svc, errorChan)
	})

	if handler != nil {
		eg.Go(func() error {
			srv := &http.Server{
				Handler:      handler,
				Addr:         cfg.ListenAddr,
				WriteTimeout: 15 * time.Second,
				ReadTimeout:  15 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	eg.Go(func() error {
		// handle any async errors from service
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
				logger.Error("service error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// cronResync resyncs every device on schedule until ctx is done. A failed
// resync is reported and the schedule carries on.
func cronResync(ctx context.Context, schedule string, svc FleetService, errChan chan error) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := svc.Resync(ctx); err != nil {
			zap.L().Error("error resyncing devices", zap.Error(err))
			errChan <- fmt.Errorf("%w: %w", errResync, err)
			return
		}
		zap.L().Debug("resynced devices")
	}); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
