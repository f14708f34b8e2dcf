// Command metatrack renders one timed metadata track from Kafka and logs
// each value when its timestamp comes due. With redis.enabled the values are
// also published to the configured channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kbukum/metatrack/bootstrap"
	"github.com/kbukum/metatrack/codec"
	"github.com/kbukum/metatrack/config"
	"github.com/kbukum/metatrack/logger"
	"github.com/kbukum/metatrack/metadata"
	"github.com/kbukum/metatrack/parser"
	"github.com/kbukum/metatrack/version"
)

const serviceName = "metatrack"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	envPath := flag.String("env", "", "Path to .env file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintln(os.Stderr, "metatrack:", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	opts := []config.LoaderOption{config.WithEnvPrefix(serviceName)}
	if configPath != "" {
		opts = append(opts, config.WithConfigFile(configPath))
	}
	if envPath != "" {
		opts = append(opts, config.WithEnvFile(envPath))
	}
	cfg, err := bootstrap.Load(serviceName, opts...)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}

	mimeType := cfg.Pipeline.MimeType
	base, c, compressed := codec.SplitMimeType(mimeType)
	switch {
	case base == parser.MimeID3:
		return start(app, wrap[*parser.Tag](parser.ID3{}, c, compressed), logTag(app.Logger))
	case (parser.Text{}).CanParse(base):
		return start(app, wrap[string](parser.Text{TrimSpace: true}, c, compressed), logValue[string](app.Logger))
	case (parser.JSON[any]{}).CanParse(base):
		return start(app, wrap[any](parser.JSON[any]{}, c, compressed), logValue[any](app.Logger))
	}
	return fmt.Errorf("no parser for mime type %q", mimeType)
}

func wrap[T any](inner metadata.Parser[T], c codec.Codec, compressed bool) metadata.Parser[T] {
	if compressed {
		return parser.NewCompressed(c, inner)
	}
	return inner
}

func start[T any](app *bootstrap.App, p metadata.Parser[T], consumer metadata.Consumer[T]) error {
	return app.RunTask(context.Background(), func(ctx context.Context) error {
		return bootstrap.Drive(ctx, app, p, consumer, nil)
	})
}

func logValue[T any](log *logger.Logger) metadata.Consumer[T] {
	return metadata.ConsumerFunc[T](func(v T) {
		log.Info("metadata", logger.Fields("value", v))
	})
}

func logTag(log *logger.Logger) metadata.Consumer[*parser.Tag] {
	return metadata.ConsumerFunc[*parser.Tag](func(tag *parser.Tag) {
		fields := logger.Fields("version", fmt.Sprintf("2.%d", tag.Major), "frames", len(tag.Frames))
		for _, f := range tag.Frames {
			if len(f.Text) > 0 {
				fields[f.ID] = strings.Join(f.Text, "/")
			}
		}
		log.Info("id3 tag", fields)
	})
}
