package cmd

import (
	"context"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/service"
	"github.com/Ahmed-Sermani/go-pagerank/service/frontend"
	"github.com/Ahmed-Sermani/go-pagerank/service/logappender"
	"github.com/spf13/cobra"
)

func (c *cli) newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the page objects over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd)
		},
	}

	flags := serveCmd.Flags()
	flags.String("listen-addr", ":8080", "The address to listen for incoming requests")
	flags.Int("max-connections", 256, "The maximum number of concurrently served connections")
	flags.String("object-store-uri", "", "The URI of the object store holding the pages (supported URIs: in-memory://, file:///path/to/dir, gs://bucket)")
	flags.String("bucket", "", "The GCS bucket holding the pages; used when --object-store-uri is not set")
	flags.String("prefix", "html-pages", "The object prefix of the pages")
	flags.String("event-bus-uri", "", "The URI of the blocked request event bus (supported URIs: in-memory://, pubsub://project?topic=TOPIC&subscription=SUB); derived from --project-id and --topic if empty; in-memory:// requires --append-log")
	flags.String("project-id", "", "The Google Cloud project of the Pub/Sub topic")
	flags.String("topic", "", "The Pub/Sub topic receiving blocked request events")
	flags.Duration("publish-timeout", 5*time.Second, "The timeout for publishing a blocked request event")
	flags.Bool("append-log", false, "Also run the log appender in this process")
	flags.String("log-prefix", "service2-logs", "The object prefix of the blocked request log (with --append-log)")
	flags.String("log-object", "forbidden_requests.log", "The object name of the blocked request log (with --append-log)")
	return serveCmd
}

func (c *cli) runServe(cmd *cobra.Command) error {
	logger, err := c.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	storeURI, err := objectStoreURI(c.v.GetString("object-store-uri"), c.v.GetString("bucket"))
	if err != nil {
		return err
	}
	store, err := getObjectStore(ctx, storeURI, logger)
	if err != nil {
		return err
	}
	defer closeAll(logger, store)

	appendLog := c.v.GetBool("append-log")
	subscription := ""
	if appendLog {
		subscription = c.v.GetString("subscription")
	}
	busURI := eventBusURI(
		c.v.GetString("event-bus-uri"),
		c.v.GetString("project-id"),
		c.v.GetString("topic"),
		subscription,
	)
	if err = checkEventConsumer(busURI, appendLog); err != nil {
		return err
	}
	bus, err := getEventBus(ctx, busURI, logger)
	if err != nil {
		return err
	}
	defer closeAll(logger, bus)

	var svcGroup service.Group
	frontendSvc, err := frontend.NewService(frontend.Config{
		ListenAddr:     c.v.GetString("listen-addr"),
		MaxConnections: c.v.GetInt("max-connections"),
		Store:          store,
		Prefix:         c.v.GetString("prefix"),
		Publisher:      bus,
		PublishTimeout: c.v.GetDuration("publish-timeout"),
		Logger:         logger.WithField("service", "front-end"),
	})
	if err != nil {
		return err
	}
	svcGroup = append(svcGroup, frontendSvc)

	if appendLog {
		appenderSvc, err := logappender.NewService(logappender.Config{
			Subscriber: bus,
			Store:      store,
			LogPrefix:  c.v.GetString("log-prefix"),
			LogObject:  c.v.GetString("log-object"),
			Logger:     logger.WithField("service", "log-appender"),
		})
		if err != nil {
			return err
		}
		svcGroup = append(svcGroup, appenderSvc)
	}

	return svcGroup.Run(ctx)
}
