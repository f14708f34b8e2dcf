// Package bootstrap assembles a metatrack host from configuration.
//
// An App owns the component registry (dispatch looper, Redis), telemetry
// providers and lifecycle hooks. Drive runs one metadata track end to end:
// it opens the configured sample source, builds the pipeline with the
// app's options and advances it on a ticker until the track finishes.
//
//	cfg, err := bootstrap.Load("metatrack")
//	if err != nil {
//		return err
//	}
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//		return err
//	}
//	return app.RunTask(ctx, func(ctx context.Context) error {
//		return bootstrap.Drive(ctx, app, parser.ID3{}, consumer, nil)
//	})
package bootstrap
