package cmd

import (
	"context"

	"github.com/Ahmed-Sermani/go-pagerank/service"
	"github.com/Ahmed-Sermani/go-pagerank/service/logappender"
	"github.com/spf13/cobra"
)

func (c *cli) newAppendLogCmd() *cobra.Command {
	appendLogCmd := &cobra.Command{
		Use:   "append-log",
		Short: "Append the blocked request events to a log object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runAppendLog(cmd)
		},
	}

	flags := appendLogCmd.Flags()
	flags.String("object-store-uri", "", "The URI of the object store holding the log (supported URIs: in-memory://, file:///path/to/dir, gs://bucket)")
	flags.String("bucket", "", "The GCS bucket holding the log; used when --object-store-uri is not set")
	flags.String("log-prefix", "service2-logs", "The object prefix of the blocked request log")
	flags.String("log-object", "forbidden_requests.log", "The object name of the blocked request log")
	flags.String("event-bus-uri", "", "The URI of the blocked request event bus (supported URIs: in-memory://, pubsub://project?subscription=SUB); derived from --project-id and --subscription if empty")
	flags.String("project-id", "", "The Google Cloud project of the Pub/Sub subscription")
	flags.String("subscription", "forbidden-requests-sub", "The Pub/Sub subscription delivering blocked request events")
	return appendLogCmd
}

func (c *cli) runAppendLog(cmd *cobra.Command) error {
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

	bus, err := getEventBus(ctx, eventBusURI(
		c.v.GetString("event-bus-uri"),
		c.v.GetString("project-id"),
		"",
		c.v.GetString("subscription"),
	), logger)
	if err != nil {
		return err
	}
	defer closeAll(logger, bus)

	svc, err := logappender.NewService(logappender.Config{
		Subscriber: bus,
		Store:      store,
		LogPrefix:  c.v.GetString("log-prefix"),
		LogObject:  c.v.GetString("log-object"),
		Logger:     logger.WithField("service", "log-appender"),
	})
	if err != nil {
		return err
	}

	return service.Group{svc}.Run(ctx)
}
